package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resumatch/internal/config"
	"alfredoptarigan/resumatch/internal/logger"
	"alfredoptarigan/resumatch/internal/models"
	"alfredoptarigan/resumatch/internal/repositories"
)

const sessionSourceTimeout = 15 * time.Second

// SessionSource resolves a one-time OAuth session id into the signed-in user's profile.
type SessionSource interface {
	Fetch(ctx context.Context, sessionID string) (*models.SessionData, error)
}

type oauthSessionSource struct {
	url     string
	timeout time.Duration
}

func NewSessionSource(url string) SessionSource {
	return &oauthSessionSource{url: url, timeout: sessionSourceTimeout}
}

// Fetch implements SessionSource. A non-200 answer means the session id was rejected.
func (s *oauthSessionSource) Fetch(ctx context.Context, sessionID string) (*models.SessionData, error) {
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}

	agent := fiber.Get(s.url)
	agent.Set("X-Session-ID", sessionID)
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return nil, fmt.Errorf("invalid session endpoint: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to reach session endpoint: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return nil, ErrSessionInvalid
	}

	var data models.SessionData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("invalid session endpoint response: %w", err)
	}
	if strings.TrimSpace(data.Email) == "" {
		return nil, ErrSessionInvalid
	}
	return &data, nil
}

type AuthService interface {
	ExchangeSession(ctx context.Context, sessionID string) (*models.User, *models.UserSession, error)
	// Authenticate returns the user id owning token.
	Authenticate(ctx context.Context, token string) (string, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	Logout(ctx context.Context, token string)
}

type authService struct {
	source   SessionSource
	users    repositories.UserRepository
	sessions repositories.SessionRepository
	cache    SessionCache
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(
	source SessionSource,
	users repositories.UserRepository,
	sessions repositories.SessionRepository,
	cache SessionCache,
	ttl time.Duration,
	log *zap.Logger,
) AuthService {
	if cache == nil {
		cache = NewSessionCache(config.RedisConfig{}, log)
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &authService{
		source:   source,
		users:    users,
		sessions: sessions,
		cache:    cache,
		ttl:      ttl,
		logger:   logger.OrNop(log),
		now:      time.Now,
	}
}

func (a *authService) ExchangeSession(ctx context.Context, sessionID string) (*models.User, *models.UserSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil, ErrSessionIDRequired
	}

	data, err := a.source.Fetch(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	user, err := a.upsertUser(ctx, data)
	if err != nil {
		return nil, nil, err
	}

	token := strings.TrimSpace(data.SessionToken)
	if token == "" {
		token = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	now := a.now().UTC()
	session := &models.UserSession{
		SessionToken: token,
		UserID:       user.UserID,
		ExpiresAt:    now.Add(a.ttl),
		CreatedAt:    now,
	}
	if err := a.sessions.Create(ctx, session); err != nil {
		return nil, nil, err
	}

	a.logger.Info("session created", zap.String("user_id", user.UserID))
	return user, session, nil
}

// upsertUser keeps the existing user id for a known email and refreshes its profile.
func (a *authService) upsertUser(ctx context.Context, data *models.SessionData) (*models.User, error) {
	var picture *string
	if p := strings.TrimSpace(data.Picture); p != "" {
		picture = &p
	}

	existing, err := a.users.FindByEmail(ctx, data.Email)
	switch {
	case err == nil:
		if err := a.users.UpdateProfile(ctx, existing.UserID, data.Name, picture); err != nil {
			return nil, err
		}
		existing.Name = data.Name
		existing.Picture = picture
		return existing, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	user := &models.User{
		UserID:    newPrefixedID("user_"),
		Email:     data.Email,
		Name:      data.Name,
		Picture:   picture,
		CreatedAt: a.now().UTC(),
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// a concurrent exchange may have won the insert
	return a.users.FindByEmail(ctx, data.Email)
}

func (a *authService) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrSessionMissing
	}

	now := a.now()
	if cached, ok := a.cache.Get(ctx, token); ok {
		if cached.ExpiresAt.Before(now) {
			a.cache.Delete(ctx, token)
			return "", ErrSessionExpired
		}
		return cached.UserID, nil
	}

	session, err := a.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrSessionInvalid
		}
		return "", err
	}
	if session.Expired(now) {
		return "", ErrSessionExpired
	}

	a.cache.Set(ctx, token, CachedSession{UserID: session.UserID, ExpiresAt: session.ExpiresAt})
	return session.UserID, nil
}

func (a *authService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return a.users.FindByID(ctx, userID)
}

// Logout never fails from the caller's point of view; store errors are logged.
func (a *authService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	// the row goes first so a concurrent lookup cannot re-cache the session
	if err := a.sessions.DeleteByToken(ctx, token); err != nil {
		a.logger.Warn("failed to delete session", zap.Error(err))
	}
	a.cache.Delete(ctx, token)
}

// newPrefixedID returns prefix followed by 12 hex characters.
func newPrefixedID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
