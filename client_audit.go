package hrmAuth

import (
	"context"

	"github.com/MrEthical07/hrmAuth/session"
)

const (
	auditEventLogin           = "login"
	auditEventLoginFailed     = "login_failed"
	auditEventRefresh         = "refresh"
	auditEventRefreshFailed   = "refresh_failed"
	auditEventLogout          = "logout"
	auditEventForcedLogout    = "forced_logout"
	auditEventSessionRestored = "session_restored"
	auditEventSessionExpired  = "session_expired"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	user *session.User,
	err error,
	metadata map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: c.now(),
		EventType: eventType,
		Success:   success,
		Metadata:  metadata,
	}
	if user != nil {
		event.UserID = user.ID
		event.Username = user.Username
		event.Role = user.Role
	}
	if err != nil {
		event.Error = err.Error()
	}
	c.audit.Emit(ctx, event)
}
