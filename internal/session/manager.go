package session

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/auth"
	"github.com/iliyamo/bank-assistant/internal/model"
	"github.com/iliyamo/bank-assistant/internal/utils"
)

const (
	// PrimaryCookie holds the most recent login of the browser.
	PrimaryCookie = "bank_session"
	// RoleCookiePrefix prefixes the per-role cookie, e.g. bank_session_admin.
	RoleCookiePrefix = "bank_session_"
	// RoleHeader lets a tab pick which per-role session it acts as.
	RoleHeader = "X-Session-Role"

	DefaultTTL = 24 * time.Hour
)

var (
	// ErrNoSession is returned when no cookie resolves to a live session.
	ErrNoSession = apperr.New(apperr.ErrUnauthenticated, "Authentication required")
	// ErrExpired is returned when the only resolvable session is older than
	// the session lifetime.
	ErrExpired = apperr.New(apperr.ErrUnauthenticated, "Session expired")
)

// sweeper is implemented by stores without native key expiry.
type sweeper interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) int
}

// Options configure a Manager; zero values pick defaults.
type Options struct {
	Secret string
	TTL    time.Duration
	Secure bool
	Now    func() time.Time
}

// Manager issues, resolves and revokes sessions. Several sessions (one per
// role) may coexist in one browser, each behind its own cookie.
type Manager struct {
	store  Store
	secret string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(store Store, opts Options) *Manager {
	m := &Manager{store: store, secret: opts.Secret, ttl: opts.TTL, secure: opts.Secure, now: opts.Now}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Login stores a new session for res and returns it with the cookies the
// response must set: the primary cookie and the cookie of the user's role.
func (m *Manager) Login(ctx context.Context, res auth.Result) (model.Session, []*http.Cookie, error) {
	id, err := utils.NewSessionID()
	if err != nil {
		return model.Session{}, nil, err
	}
	snapshot := res.Customer.Redacted()
	now := m.now()
	s := model.Session{
		ID:           id,
		UserID:       res.Username,
		UserRole:     res.Role,
		UserName:     res.Name,
		CustomerData: &snapshot,
		CreatedAt:    now.UTC(),
	}
	if sw, ok := m.store.(sweeper); ok {
		if n := sw.DeleteExpired(ctx, now.Add(-m.ttl)); n > 0 {
			log.Debug().Int("count", n).Msg("swept expired sessions")
		}
	}
	if err := m.store.Save(ctx, s); err != nil {
		return model.Session{}, nil, err
	}
	token, err := utils.NewSessionToken(m.secret, id, res.Username, res.Role, now, now.Add(m.ttl))
	if err != nil {
		return model.Session{}, nil, err
	}
	return s, []*http.Cookie{
		m.cookie(PrimaryCookie, token, int(m.ttl/time.Second)),
		m.cookie(RoleCookiePrefix+res.Role, token, int(m.ttl/time.Second)),
	}, nil
}

// Resolve returns the live session the request acts as, trying cookies in
// the order candidates gives; the first that resolves wins. Expired sessions
// met on the way are deleted.
func (m *Manager) Resolve(ctx context.Context, r *http.Request) (model.Session, error) {
	expired := false
	for _, c := range m.candidates(r) {
		s, err := m.lookup(ctx, c)
		if errors.Is(err, ErrExpired) {
			expired = true
			continue
		}
		if err != nil {
			continue
		}
		return s, nil
	}
	if expired {
		return model.Session{}, ErrExpired
	}
	return model.Session{}, ErrNoSession
}

// IsExpired reports whether s is older than the session lifetime.
func (m *Manager) IsExpired(s model.Session) bool {
	return m.now().Sub(s.CreatedAt) > m.ttl
}

// Logout deletes every session referenced by the request's cookies and
// returns the deleted sessions together with cookies that clear the primary
// cookie and each per-role cookie present.
func (m *Manager) Logout(ctx context.Context, r *http.Request) ([]model.Session, []*http.Cookie) {
	var ended []model.Session
	seen := make(map[string]bool)
	clear := []*http.Cookie{m.cookie(PrimaryCookie, "", -1)}

	for _, c := range m.candidates(r) {
		if c.Name != PrimaryCookie && !seen[c.Name] {
			clear = append(clear, m.cookie(c.Name, "", -1))
		}
		seen[c.Name] = true

		claims, err := utils.ParseSessionToken(m.secret, c.Value, m.now())
		if err != nil || seen["sid:"+claims.SessionID] {
			continue
		}
		seen["sid:"+claims.SessionID] = true
		s, err := m.store.Load(ctx, claims.SessionID)
		if err != nil {
			continue
		}
		if err := m.store.Delete(ctx, s.ID); err != nil {
			log.Error().Err(err).Str("username", s.UserID).Msg("delete session")
			continue
		}
		ended = append(ended, s)
	}
	return ended, clear
}

func (m *Manager) lookup(ctx context.Context, c *http.Cookie) (model.Session, error) {
	claims, err := utils.ParseSessionToken(m.secret, c.Value, m.now())
	if err != nil {
		return model.Session{}, err
	}
	if role, ok := strings.CutPrefix(c.Name, RoleCookiePrefix); ok && role != claims.Role {
		return model.Session{}, ErrNoSession
	}
	s, err := m.store.Load(ctx, claims.SessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			log.Error().Err(err).Msg("load session")
		}
		return model.Session{}, err
	}
	if m.IsExpired(s) {
		if err := m.store.Delete(ctx, s.ID); err != nil {
			log.Error().Err(err).Str("username", s.UserID).Msg("delete expired session")
		}
		return model.Session{}, ErrExpired
	}
	return s, nil
}

// candidates orders the request's session cookies by resolution priority:
// the role cookie named by X-Session-Role, or without that header the one
// matching the primary cookie's role, then the other role cookies by name,
// then the primary cookie.
func (m *Manager) candidates(r *http.Request) []*http.Cookie {
	var primary *http.Cookie
	var roles []*http.Cookie
	for _, c := range r.Cookies() {
		switch {
		case c.Name == PrimaryCookie:
			if primary == nil {
				primary = c
			}
		case strings.HasPrefix(c.Name, RoleCookiePrefix) && len(c.Name) > len(RoleCookiePrefix):
			roles = append(roles, c)
		}
	}
	role := r.Header.Get(RoleHeader)
	if role == "" && primary != nil {
		// The primary cookie belongs to the most recent login.
		if claims, err := utils.ParseSessionToken(m.secret, primary.Value, m.now()); err == nil {
			role = claims.Role
		}
	}
	want := RoleCookiePrefix + role
	sort.SliceStable(roles, func(i, j int) bool {
		if (roles[i].Name == want) != (roles[j].Name == want) {
			return roles[i].Name == want
		}
		return roles[i].Name < roles[j].Name
	})
	if primary != nil {
		roles = append(roles, primary)
	}
	return roles
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
