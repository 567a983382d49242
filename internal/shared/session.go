package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "storehq:session:"
	// userField is the hash field holding the signed-in user. Session values
	// must not use it as a key.
	userField = "_user"
)

// SessionManager keeps cookie identified sessions as Redis hashes. Signed-in
// sessions slide: every request that reaches Commit extends their TTL.
type SessionManager struct {
	client     redis.Cmdable
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data.
type Session struct {
	ID        string
	values    map[string]string
	userID    string
	previous  string
	isNew     bool
	dirty     bool
	destroyed bool
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client redis.Cmdable, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{client: client, cookieName: cookieName, ttl: ttl, secure: secure}
}

// Load returns the session named by the request cookie. Unknown or expired
// ids yield a fresh session so a client cannot choose its own id.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	switch {
	case errors.Is(err, http.ErrNoCookie):
		return newSession(), nil
	case err != nil:
		return nil, err
	case cookie.Value == "":
		return newSession(), nil
	}

	fields, err := sm.client.HGetAll(ctx, sm.key(cookie.Value)).Result()
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	if len(fields) == 0 {
		return newSession(), nil
	}
	sess := &Session{ID: cookie.Value, values: make(map[string]string, len(fields))}
	for k, v := range fields {
		if k == userField {
			sess.userID = v
			continue
		}
		sess.values[k] = v
	}
	return sess, nil
}

// Commit writes session changes to Redis in one transaction and sets or
// clears the cookie.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	key := sm.key(sess.ID)
	pipe := sm.client.TxPipeline()
	if sess.previous != "" {
		pipe.Del(ctx, sm.key(sess.previous))
	}

	setCookie := false
	switch {
	case sess.destroyed:
		pipe.Del(ctx, key)
	case sess.isNew && len(sess.values) == 0 && sess.userID == "":
		// anonymous and empty, nothing to store
	case sess.dirty:
		fields := sess.fields()
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, sm.ttl)
		}
		setCookie = sess.isNew || sess.userID != ""
	case sess.userID != "":
		pipe.Expire(ctx, key, sm.ttl)
		setCookie = true
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: commit: %w", err)
	}
	sess.previous = ""
	sess.dirty = false

	switch {
	case sess.destroyed:
		http.SetCookie(w, sm.cookie("", -1))
	case setCookie:
		http.SetCookie(w, sm.cookie(sess.ID, int(sm.ttl.Seconds())))
		sess.isNew = false
	}
	return nil
}

// Destroy marks the session for deletion on commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (sm *SessionManager) key(id string) string {
	return sessionKeyPrefix + id
}

func newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (s *Session) fields() map[string]any {
	out := make(map[string]any, len(s.values)+1)
	for k, v := range s.values {
		out[k] = v
	}
	if s.userID != "" {
		out[userField] = s.userID
	}
	return out
}

// Set stores a value.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get returns a value or "".
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// SetUser binds the session to a user id.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the signed-in user id, or "".
func (s *Session) User() string {
	return s.userID
}

// Renew moves the session to a new id. The old key is deleted on commit.
func (s *Session) Renew() {
	if !s.isNew {
		s.previous = s.ID
	}
	s.ID = uuid.NewString()
	s.isNew = true
	s.dirty = true
}

type sessionKey struct{}

// ContextWithSession attaches sess to ctx for downstream handlers.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the request session, or nil outside the
// session middleware.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}
