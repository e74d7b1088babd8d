package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resumatch/internal/config"
	"alfredoptarigan/resumatch/internal/models"
	"alfredoptarigan/resumatch/internal/repositories"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*models.User)}
}

func (m *memoryUsers) FindByID(ctx context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserID == userID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; !ok {
		cp := *user
		m.users[user.Email] = &cp
	}
	return nil
}

func (m *memoryUsers) UpdateProfile(ctx context.Context, userID, name string, picture *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserID == userID {
			u.Name = name
			u.Picture = picture
			return nil
		}
	}
	return repositories.ErrNotFound
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]models.UserSession
	lookups  int

	beforeDelete func(token string)
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]models.UserSession)}
}

func (m *memorySessions) Create(ctx context.Context, s *models.UserSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionToken] = *s
	return nil
}

func (m *memorySessions) FindByToken(ctx context.Context, token string) (*models.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	s, ok := m.sessions[token]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (m *memorySessions) DeleteByToken(ctx context.Context, token string) error {
	if m.beforeDelete != nil {
		m.beforeDelete(token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

type memorySessionCache struct {
	mu      sync.Mutex
	entries map[string]CachedSession
}

func newMemorySessionCache() *memorySessionCache {
	return &memorySessionCache{entries: make(map[string]CachedSession)}
}

func (m *memorySessionCache) Get(ctx context.Context, token string) (CachedSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[token]
	return s, ok
}

func (m *memorySessionCache) Set(ctx context.Context, token string, s CachedSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = s
}

func (m *memorySessionCache) Delete(ctx context.Context, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, token)
}

func (m *memorySessionCache) Close() error { return nil }

type stubSessionSource struct {
	data *models.SessionData
	err  error
}

func (s stubSessionSource) Fetch(ctx context.Context, sessionID string) (*models.SessionData, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.data
	return &cp, nil
}

func newTestAuthService(source SessionSource) (*authService, *memoryUsers, *memorySessions, *memorySessionCache) {
	users := newMemoryUsers()
	sessions := newMemorySessions()
	cache := newMemorySessionCache()
	svc := NewAuthService(source, users, sessions, cache, 7*24*time.Hour, zap.NewNop()).(*authService)
	return svc, users, sessions, cache
}

func TestExchangeSession_CreatesThenReusesUser(t *testing.T) {
	source := stubSessionSource{data: &models.SessionData{
		Email: "jane@example.com", Name: "Jane", Picture: "https://img/jane.png", SessionToken: "tok-1",
	}}
	svc, users, sessions, _ := newTestAuthService(source)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	user, session, err := svc.ExchangeSession(context.Background(), "sid")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if !strings.HasPrefix(user.UserID, "user_") || len(user.UserID) != len("user_")+12 {
		t.Fatalf("unexpected user id %q", user.UserID)
	}
	if session.SessionToken != "tok-1" || !session.ExpiresAt.Equal(now.Add(7*24*time.Hour)) {
		t.Fatalf("unexpected session %+v", session)
	}

	source.data.Name = "Jane D."
	source.data.SessionToken = "tok-2"
	svc.source = source
	again, _, err := svc.ExchangeSession(context.Background(), "sid-2")
	if err != nil {
		t.Fatalf("second exchange: %v", err)
	}
	if again.UserID != user.UserID {
		t.Fatalf("existing user should keep id %s, got %s", user.UserID, again.UserID)
	}
	if stored, _ := users.FindByEmail(context.Background(), "jane@example.com"); stored.Name != "Jane D." {
		t.Fatalf("profile not refreshed: %+v", stored)
	}
	if len(users.users) != 1 || len(sessions.sessions) != 2 {
		t.Fatalf("expected 1 user and 2 sessions, got %d and %d", len(users.users), len(sessions.sessions))
	}
}

func TestExchangeSession_Errors(t *testing.T) {
	svc, _, _, _ := newTestAuthService(stubSessionSource{err: ErrSessionInvalid})

	if _, _, err := svc.ExchangeSession(context.Background(), "  "); !errors.Is(err, ErrSessionIDRequired) {
		t.Fatalf("blank id: expected ErrSessionIDRequired, got %v", err)
	}
	if _, _, err := svc.ExchangeSession(context.Background(), "sid"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("rejected id: expected ErrSessionInvalid, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _, sessions, cache := newTestAuthService(nil)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	sessions.sessions["live"] = models.UserSession{SessionToken: "live", UserID: "user_a", ExpiresAt: now.Add(time.Hour)}
	sessions.sessions["old"] = models.UserSession{SessionToken: "old", UserID: "user_a", ExpiresAt: now.Add(-time.Second)}

	cases := []struct {
		token string
		want  error
	}{
		{"", ErrSessionMissing},
		{"unknown", ErrSessionInvalid},
		{"old", ErrSessionExpired},
	}
	for _, tc := range cases {
		if _, err := svc.Authenticate(context.Background(), tc.token); !errors.Is(err, tc.want) {
			t.Errorf("token %q: expected %v, got %v", tc.token, tc.want, err)
		}
		if !IsAuthError(tc.want) {
			t.Errorf("%v should be an auth error", tc.want)
		}
	}

	userID, err := svc.Authenticate(context.Background(), "live")
	if err != nil || userID != "user_a" {
		t.Fatalf("live session: %q %v", userID, err)
	}
	if _, ok := cache.entries["live"]; !ok {
		t.Fatal("valid session should be cached")
	}

	lookups := sessions.lookups
	if _, err := svc.Authenticate(context.Background(), "live"); err != nil {
		t.Fatalf("cached session: %v", err)
	}
	if sessions.lookups != lookups {
		t.Fatal("cached session should not hit the store")
	}

	now = now.Add(2 * time.Hour)
	if _, err := svc.Authenticate(context.Background(), "live"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("cached but expired session: got %v", err)
	}
	if _, ok := cache.entries["live"]; ok {
		t.Fatal("expired cache entry should be evicted")
	}
}

func TestLogout_ConcurrentAuthenticateCannotRecache(t *testing.T) {
	svc, _, sessions, cache := newTestAuthService(nil)
	expires := time.Now().Add(time.Hour)
	sessions.sessions["tok"] = models.UserSession{SessionToken: "tok", UserID: "u", ExpiresAt: expires}
	cache.entries["tok"] = CachedSession{UserID: "u", ExpiresAt: expires}

	// a request authenticating while logout is in progress
	sessions.beforeDelete = func(token string) {
		_, _ = svc.Authenticate(context.Background(), token)
	}

	svc.Logout(context.Background(), "tok")

	if _, ok := cache.Get(context.Background(), "tok"); ok {
		t.Fatal("logged out token must not remain cached")
	}
	sessions.beforeDelete = nil
	if _, err := svc.Authenticate(context.Background(), "tok"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid after logout, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc, _, sessions, cache := newTestAuthService(nil)
	sessions.sessions["tok"] = models.UserSession{SessionToken: "tok", UserID: "u", ExpiresAt: time.Now().Add(time.Hour)}
	cache.entries["tok"] = CachedSession{UserID: "u", ExpiresAt: time.Now().Add(time.Hour)}

	svc.Logout(context.Background(), "tok")
	svc.Logout(context.Background(), "tok")
	svc.Logout(context.Background(), "")

	if len(sessions.sessions) != 0 || len(cache.entries) != 0 {
		t.Fatal("logout should remove the session and its cache entry")
	}
	if _, err := svc.Authenticate(context.Background(), "tok"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("logged out token: got %v", err)
	}
}

func TestOAuthSessionSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Session-ID") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"g-1","email":"jane@example.com","name":"Jane","picture":"","session_token":"tok"}`))
	}))
	defer server.Close()

	source := NewSessionSource(server.URL)

	data, err := source.Fetch(context.Background(), "good")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if data.Email != "jane@example.com" || data.SessionToken != "tok" {
		t.Fatalf("unexpected data %+v", data)
	}

	if _, err := source.Fetch(context.Background(), "bad"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("rejected session: expected ErrSessionInvalid, got %v", err)
	}
}

func TestSessionCacheTTL(t *testing.T) {
	now := time.Now()
	if got := sessionCacheTTL(now, now.Add(time.Hour), 10*time.Minute); got != 10*time.Minute {
		t.Errorf("long-lived session: got %v", got)
	}
	if got := sessionCacheTTL(now, now.Add(time.Minute), 10*time.Minute); got != time.Minute {
		t.Errorf("short-lived session: got %v", got)
	}
	if got := sessionCacheTTL(now, now.Add(-time.Minute), 10*time.Minute); got > 0 {
		t.Errorf("expired session should not be cached: got %v", got)
	}
}

func TestSessionCache_DisabledIsBypass(t *testing.T) {
	cache := NewSessionCache(config.RedisConfig{}, nil)
	cache.Set(context.Background(), "tok", CachedSession{UserID: "u", ExpiresAt: time.Now().Add(time.Hour)})
	if _, ok := cache.Get(context.Background(), "tok"); ok {
		t.Fatal("disabled cache must always miss")
	}
	cache.Delete(context.Background(), "tok")
	if err := cache.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
