package internaldefs

import (
	hrmAuth "github.com/MrEthical07/hrmAuth"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   hrmAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   hrmAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every client counter in export order.
var CounterDefs = []CounterDef{
	{ID: hrmAuth.MetricLoginSuccess, Name: "hrm_login_success_total", Help: "Logins that produced a session."},
	{ID: hrmAuth.MetricLoginFailure, Name: "hrm_login_failure_total", Help: "Rejected or failed logins."},
	{ID: hrmAuth.MetricRegisterSuccess, Name: "hrm_register_success_total", Help: "Accepted registrations."},
	{ID: hrmAuth.MetricRegisterFailure, Name: "hrm_register_failure_total", Help: "Rejected registrations."},
	{ID: hrmAuth.MetricRefreshSuccess, Name: "hrm_refresh_success_total", Help: "Refreshes that produced a new access token."},
	{ID: hrmAuth.MetricRefreshFailure, Name: "hrm_refresh_failure_total", Help: "Refreshes that ended the session."},
	{ID: hrmAuth.MetricRefreshCoalesced, Name: "hrm_refresh_coalesced_total", Help: "Callers that shared an in-flight refresh."},
	{ID: hrmAuth.MetricRequestRetried, Name: "hrm_request_retried_total", Help: "Pipeline calls reissued after a 401."},
	{ID: hrmAuth.MetricForcedLogout, Name: "hrm_forced_logout_total", Help: "Pipeline hard stops."},
	{ID: hrmAuth.MetricLogout, Name: "hrm_logout_total", Help: "Logouts, forced or not."},
	{ID: hrmAuth.MetricSessionRestored, Name: "hrm_session_restored_total", Help: "Sessions restored from storage."},
	{ID: hrmAuth.MetricSessionExpired, Name: "hrm_session_expired_total", Help: "Sessions found with an expired access token."},
	{ID: hrmAuth.MetricAPIError, Name: "hrm_api_error_total", Help: "Pipeline calls that returned an APIError."},
	{ID: hrmAuth.MetricGuardAdmit, Name: "hrm_guard_admit_total", Help: "Guard evaluations that rendered the view."},
	{ID: hrmAuth.MetricGuardLogin, Name: "hrm_guard_login_total", Help: "Guard redirects to the login route."},
	{ID: hrmAuth.MetricGuardUnauthorized, Name: "hrm_guard_unauthorized_total", Help: "Guard redirects to the unauthorized route."},
	{ID: hrmAuth.MetricProfileRefreshFailure, Name: "hrm_profile_refresh_failure_total", Help: "Failed background profile refreshes."},
}

// HistogramDefs lists every client histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: hrmAuth.MetricRequestLatency, Name: "hrm_request_latency_seconds", Help: "Request pipeline latency, refresh and retry included."},
}

// HistogramBounds are the Prometheus le labels of the latency buckets.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix are the bounds rendered as instrument name suffixes.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
