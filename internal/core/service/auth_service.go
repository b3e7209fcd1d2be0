package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmadmin/access-core/internal/core/domain"
	"github.com/crmadmin/access-core/internal/core/ports"
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// compareDummy burns the same bcrypt cost as a real comparison so unknown
// and inactive accounts are not distinguishable by response time.
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// AuthService implements login (token issuance) and token verification.
type AuthService struct {
	users     ports.UserRepository
	positions ports.PositionRepository
	tokens    *TokenService
	resolver  *PermissionResolver
	throttle  ports.LoginThrottle // optional
	audit     ports.AuditRecorder // optional
	log       zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	positions ports.PositionRepository,
	tokens *TokenService,
	throttle ports.LoginThrottle,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		positions: positions,
		tokens:    tokens,
		resolver:  NewPermissionResolver(),
		throttle:  throttle,
		audit:     audit,
		log:       log,
	}
}

// Login verifies credentials and issues a token. Every credential failure
// is reported as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Attempt(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("login throttle check failed, allowing attempt")
		} else if !allowed {
			s.recordFailure(email, "", "throttled", in.RemoteIP)
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		compareDummy(in.Password)
		s.recordFailure(email, "", "unknown_email", in.RemoteIP)
		return nil, domain.ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		compareDummy(in.Password)
		s.recordFailure(email, user.ID, "inactive", in.RemoteIP)
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.recordFailure(email, user.ID, "bad_password", in.RemoteIP)
		return nil, domain.ErrInvalidCredentials
	}

	position, err := s.effectivePosition(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("failed to reset login throttle")
		}
	}
	s.record(domain.AuthEvent{
		Type:     domain.EventLoginSuccess,
		UserID:   user.ID,
		Email:    email,
		RemoteIP: in.RemoteIP,
	})
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("login succeeded")

	return &ports.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		Position:  position,
	}, nil
}

// Authenticate verifies a bearer token and re-reads the user so that
// deactivation and role or position changes apply immediately.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewAuthError(domain.KindUserInactive, err)
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	position, err := s.effectivePosition(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	return &domain.Identity{
		User:        user,
		Position:    position,
		Permissions: s.resolver.Effective(position),
	}, nil
}

// effectivePosition returns the user's stored position, or the role-derived
// one when none is assigned or the assigned row no longer exists.
func (s *AuthService) effectivePosition(ctx context.Context, user *domain.User) (*domain.Position, error) {
	if user.PositionID == nil || *user.PositionID == "" {
		return domain.RolePosition(user.Role), nil
	}

	position, err := s.positions.FindByID(ctx, *user.PositionID)
	if err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			s.log.Warn().
				Str("user_id", user.ID).
				Str("position_id", *user.PositionID).
				Msg("assigned position missing, falling back to role")
			return domain.RolePosition(user.Role), nil
		}
		return nil, err
	}
	return position, nil
}

func (s *AuthService) recordFailure(email, userID, reason, remoteIP string) {
	s.log.Info().Str("email", email).Str("reason", reason).Msg("login rejected")
	s.record(domain.AuthEvent{
		Type:     domain.EventLoginFailure,
		UserID:   userID,
		Email:    email,
		Reason:   reason,
		RemoteIP: remoteIP,
	})
}

func (s *AuthService) record(e domain.AuthEvent) {
	if s.audit == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.audit.Record(e)
}
