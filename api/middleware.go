package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"phishnet/core/auth"
	"phishnet/core/store"
)

const (
	sessionCookie        = "phishnet_session"
	loginPayloadMaxBytes = 64 * 1024
	loginLimiterTTL      = 10 * time.Minute
)

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Errorf("PANIC %s %s: %v\n%s", r.Method, r.URL.Path, rec, string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		subject := "-"
		if v := r.Context().Value(auth.SessionContextKey); v != nil {
			sr := v.(*store.SessionRecord)
			subject = sr.Kind
		}
		s.logger.Printf("RESP %s %s subject=%s status=%d dur=%s", r.Method, r.URL.Path, subject, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withSession resolves the session cookie and stashes the record in the
// request context; any authenticated subject passes.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sr := s.resolveSession(r)
		if sr == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), auth.SessionContextKey, sr)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// withVictimSession additionally requires the session to belong to a
// victim account.
func (s *Server) withVictimSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sr := s.resolveSession(r)
		if sr == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if sr.Kind != auth.SubjectVictim {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), auth.SessionContextKey, sr)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// requireAdmin requires an admin session whose role passes the rbac
// check for obj/act.
func (s *Server) requireAdmin(obj, act string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sr := s.resolveSession(r)
		if sr == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if sr.Kind != auth.SubjectAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		admin, err := s.deps.Admins.GetAdmin(r.Context(), sr.SubjectID)
		if err != nil {
			s.logger.Printf("AUTH fail (admin missing) %s %s: %v", r.Method, r.URL.Path, err)
			_ = s.sessions.Delete(r.Context(), sr.ID)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := s.deps.Enforcer.Require(admin.Role, obj, act); err != nil {
			s.logger.Printf("PERM fail %s %s role=%s need=%s:%s", r.Method, r.URL.Path, admin.Role, obj, act)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), auth.SessionContextKey, sr)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (s *Server) resolveSession(r *http.Request) *store.SessionRecord {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sr, err := s.sessions.Resolve(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return sr
}

type requestLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*tokenBucket
	capacity int
	refill   time.Duration
}

type tokenBucket struct {
	tokens   int
	last     time.Time
	lastSeen time.Time
}

func newLimiter(capacity int, refill time.Duration) *requestLimiter {
	return &requestLimiter{buckets: make(map[string]*tokenBucket), capacity: capacity, refill: refill}
}

func (l *requestLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for k, tb := range l.buckets {
		if now.Sub(tb.lastSeen) > loginLimiterTTL {
			delete(l.buckets, k)
		}
	}
	tb, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &tokenBucket{tokens: l.capacity - 1, last: now, lastSeen: now}
		return true
	}
	tb.lastSeen = now
	if now.Sub(tb.last) >= l.refill {
		tb.tokens = l.capacity
		tb.last = now
	}
	if tb.tokens <= 0 {
		return false
	}
	tb.tokens--
	return true
}

var loginLimiter = newLimiter(5, time.Minute)

// rateLimitMiddleware throttles credential endpoints per client IP and
// per submitted email.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, loginPayloadMaxBytes+1)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var cred struct {
			Email string `json:"email"`
		}
		_ = json.Unmarshal(body, &cred)
		ip, _, _ := net.SplitHostPort(r.RemoteAddr)
		if ip == "" {
			ip = r.RemoteAddr
		}
		if !loginLimiter.allow(strings.ToLower(strings.TrimSpace(ip))) {
			http.Error(w, "too many attempts", http.StatusTooManyRequests)
			return
		}
		if email := strings.ToLower(strings.TrimSpace(cred.Email)); email != "" && !loginLimiter.allow("user|"+email) {
			http.Error(w, "too many attempts", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	}
}
