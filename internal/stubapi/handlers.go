package stubapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/hrmAuth/internal"
	"github.com/MrEthical07/hrmAuth/internal/rate"
	"github.com/MrEthical07/hrmAuth/jwt"
	"github.com/MrEthical07/hrmAuth/permission"
)

var errUsernameTaken = errors.New("username taken")

const (
	detailBadCredentials = "No active account found with the given credentials"
	detailTokenInvalid   = "Given token not valid for any token type"
	detailRefreshInvalid = "Token is invalid or expired"
	detailForbidden      = "You do not have permission to perform this action."
	detailThrottled      = "Request was throttled."
	msgUsernameTaken     = "A user with that username already exists."
)

type claimsContextKey struct{}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

/*
====================================
TOKENS
====================================
*/

func (s *Server) issueAccess(u *User) (string, error) {
	jti := uuid.NewString()
	token, err := s.tokens.CreateAccess(jwt.Claims{
		UserID:           jwt.UserID(strconv.Itoa(u.ID)),
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		RegisteredClaims: gjwt.RegisteredClaims{ID: jti, Subject: u.Username},
	})
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.access[jti] = true
	s.mu.Unlock()
	return token, nil
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)
	var body struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if err := s.validate.StructCtx(r.Context(), body); err != nil {
		writeJSON(w, http.StatusBadRequest, fieldErrors(err))
		return
	}

	ip := clientIP(r)
	if s.limiter != nil {
		if err := s.limiter.CheckLogin(r.Context(), body.Username, ip); err != nil {
			s.throttled(w, err)
			return
		}
	}

	s.mu.RLock()
	u, ok := s.users[body.Username]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(body.Password)) != nil {
		if s.limiter != nil {
			if err := s.limiter.IncrementLogin(r.Context(), body.Username, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				s.logger.Warn("stubapi: login throttle unavailable", "error", err)
			}
		}
		writeDetail(w, http.StatusUnauthorized, detailBadCredentials)
		return
	}
	if s.limiter != nil {
		if err := s.limiter.ResetLogin(r.Context(), body.Username, ip); err != nil {
			s.logger.Warn("stubapi: login throttle reset failed", "error", err)
		}
	}

	access, err := s.issueAccess(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	refresh, err := internal.NewRefreshToken()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	s.mu.Lock()
	s.refresh[internal.HashToken(refresh)] = u.Username
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"refresh": []string{"This field is required."}})
		return
	}
	if s.failRefresh.Load() || internal.ValidRefreshToken(body.Refresh) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": detailRefreshInvalid, "code": "token_not_valid"})
		return
	}

	hash := internal.HashToken(body.Refresh)
	if s.limiter != nil {
		if err := s.limiter.CheckRefresh(r.Context(), hash); err != nil {
			s.throttled(w, err)
			return
		}
	}

	s.mu.RLock()
	username, ok := s.refresh[hash]
	u := s.users[username]
	s.mu.RUnlock()
	if !ok || u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": detailRefreshInvalid, "code": "token_not_valid"})
		return
	}

	access, err := s.issueAccess(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) throttled(w http.ResponseWriter, err error) {
	if errors.Is(err, rate.ErrRateLimited) {
		writeDetail(w, http.StatusTooManyRequests, detailThrottled)
		return
	}
	s.logger.Warn("stubapi: throttle unavailable", "error", err)
	writeDetail(w, http.StatusServiceUnavailable, "Service unavailable.")
}

/*
====================================
AUTHENTICATED ROUTES
====================================
*/

func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
			return
		}
		claims, err := s.tokens.ParseAccess(token)
		if err == nil {
			s.mu.RLock()
			live := s.access[claims.ID]
			s.mu.RUnlock()
			if !live {
				err = errors.New("revoked")
			}
		}
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": detailTokenInvalid, "code": "token_not_valid"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims)))
	})
}

func claimsFrom(r *http.Request) *jwt.Claims {
	c, _ := r.Context().Value(claimsContextKey{}).(*jwt.Claims)
	return c
}

// requireCapability is the backend's own check; the client-side answer is only a hint.
func (s *Server) requireCapability(c permission.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFrom(r)
			if claims == nil || !permission.DefaultTable().Has(permission.Role(claims.Role), c) {
				writeDetail(w, http.StatusForbidden, detailForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) currentUser(r *http.Request) (*User, bool) {
	claims := claimsFrom(r)
	if claims == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[claims.Username]
	if !ok {
		return nil, false
	}
	out := *u
	return &out, true
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found.")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type registerBody struct {
	Username   string `json:"username" validate:"required,max=150"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role" validate:"required,oneof=CEO HR Manager Employee"`
	Department string `json:"department"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if err := s.validate.StructCtx(r.Context(), body); err != nil {
		writeJSON(w, http.StatusBadRequest, fieldErrors(err))
		return
	}

	u, err := s.AddUser(User{
		Username:   body.Username,
		Email:      body.Email,
		Role:       body.Role,
		FirstName:  body.FirstName,
		LastName:   body.LastName,
		Department: body.Department,
	}, body.Password)
	if errors.Is(err, errUsernameTaken) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{msgUsernameTaken}})
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"results": out, "count": len(out)})
}

func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if strings.TrimSpace(body.Name) == "" {
		writeDetail(w, http.StatusBadRequest, "Department name is required.")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": uuid.NewString(), "name": body.Name})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	s.mu.RLock()
	headcount := len(s.users)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"role":      claims.Role,
		"headcount": headcount,
	})
}
