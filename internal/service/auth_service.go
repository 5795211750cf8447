package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"finance-hub/internal/auth"
	"finance-hub/internal/config"
	"finance-hub/internal/data"
	"finance-hub/internal/logger"
	"finance-hub/internal/session"

	"github.com/casbin/casbin/v2"
)

// SignUpInput is the registration form.
type SignUpInput struct {
	Email       string `form:"email" validate:"required,email,max=255"`
	Password    string `form:"password" validate:"required"`
	DisplayName string `form:"display_name" validate:"max=100"`
}

// Mailer delivers account emails.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer writes outgoing mail to the log instead of sending it.
type LogMailer struct {
	Log logger.Logger
}

// SendPasswordReset logs the reset link.
func (m LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.Log.With(map[string]interface{}{"to": email, "link": link}).Info("password reset requested")
	return nil
}

// AuthService owns local accounts, password resets and role grants.
type AuthService struct {
	users     Collection[data.User]
	resets    Collection[data.PasswordReset]
	enforcer  casbin.IEnforcer
	passwords *auth.PasswordService
	limiter   *auth.LoginLimiter
	mailer    Mailer
	cfg       config.AuthConfig
	baseURL   string
	log       logger.Logger
	now       func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(users Collection[data.User], resets Collection[data.PasswordReset], enforcer casbin.IEnforcer, mailer Mailer, cfg config.AuthConfig, baseURL string, log logger.Logger) *AuthService {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	perMinute := cfg.LoginPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	return &AuthService{
		users:     users,
		resets:    resets,
		enforcer:  enforcer,
		passwords: auth.NewPasswordService(cfg.BcryptCost),
		limiter:   auth.NewLoginLimiter(perMinute, cfg.LoginBurst),
		mailer:    mailer,
		cfg:       cfg,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       log,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (*data.User, error) {
	return first(ctx, s.users, data.Query{Where: []data.Cond{data.Eq("email", email)}})
}

// SignIn checks a password and returns the signed-in principal.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*session.UserInfo, error) {
	email = normalizeEmail(email)
	if !s.limiter.Allow(email) {
		return nil, auth.ErrRateLimited
	}
	u, err := s.userByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	// Accounts created through OIDC have no local password.
	if u.PasswordHash == "" {
		return nil, auth.ErrInvalidCredentials
	}
	if err := s.passwords.Verify(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return s.principal(u)
}

// SignUp registers an account. Emails listed in auth.seed_admins are made
// admins on registration.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*session.UserInfo, error) {
	in.Email = normalizeEmail(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	n, err := s.users.Count(ctx, data.Query{Where: []data.Cond{data.Eq("email", in.Email)}})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, auth.ErrEmailTaken
	}
	u := &data.User{Email: in.Email, DisplayName: in.DisplayName, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, data.ErrConflict) {
			return nil, auth.ErrEmailTaken
		}
		return nil, err
	}
	s.log.With(map[string]interface{}{"user_id": u.ID}).Info("account registered")
	return s.principal(u)
}

// SignInOIDC links verified provider claims to a local account, creating it
// on first use.
func (s *AuthService) SignInOIDC(ctx context.Context, claims *auth.Claims) (*session.UserInfo, error) {
	if !claims.EmailVerified {
		return nil, auth.ErrEmailNotVerified
	}
	email := normalizeEmail(claims.Email)
	u, err := s.userByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		u = &data.User{Email: email, DisplayName: strings.TrimSpace(claims.Name)}
		err = s.users.Create(ctx, u)
	}
	if err != nil {
		return nil, err
	}
	return s.principal(u)
}

// UserInfo reloads the principal for a session's user id.
func (s *AuthService) UserInfo(ctx context.Context, userID string) (*session.UserInfo, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles, err := auth.RolesFor(s.enforcer, u.ID)
	if err != nil {
		return nil, err
	}
	return &session.UserInfo{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Roles: roles}, nil
}

// principal grants the baseline roles and builds the session user.
func (s *AuthService) principal(u *data.User) (*session.UserInfo, error) {
	if err := auth.EnsureUser(s.enforcer, u.ID); err != nil {
		return nil, err
	}
	roles, err := auth.RolesFor(s.enforcer, u.ID)
	if err != nil {
		return nil, err
	}
	return &session.UserInfo{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Roles: roles}, nil
}

// SendPasswordReset mails a single-use reset link. Unknown addresses are
// accepted silently so the form does not reveal which emails exist.
func (s *AuthService) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	u, err := s.userByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := newToken()
	if err != nil {
		return err
	}
	reset := &data.PasswordReset{
		UserID:    u.ID,
		TokenHash: hashToken(token),
		ExpiresAt: s.now().Add(s.cfg.ResetTokenTTL),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return err
	}
	link := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	return s.mailer.SendPasswordReset(ctx, u.Email, link)
}

// ResetPassword sets a new password using a token from SendPasswordReset.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	reset, err := first(ctx, s.resets, data.Query{Where: []data.Cond{
		data.Eq("token_hash", hashToken(token)),
		data.Eq("used", false),
	}})
	if errors.Is(err, ErrNotFound) {
		return auth.ErrResetExpired
	}
	if err != nil {
		return err
	}
	if !s.now().Before(reset.ExpiresAt) {
		return auth.ErrResetExpired
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return err
	}
	if _, err := s.users.Update(ctx, reset.UserID, data.Fields{"password_hash": hash}); err != nil {
		return err
	}
	_, err = s.resets.Update(ctx, reset.ID, data.Fields{"used": true})
	return err
}

// GrantAdminByEmail makes the account with email an admin.
func (s *AuthService) GrantAdminByEmail(ctx context.Context, email string) error {
	u, err := s.userByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("lookup %s: %w", email, err)
	}
	return auth.GrantAdmin(s.enforcer, u.ID)
}

// RevokeAdminByEmail removes the admin role from the account with email.
func (s *AuthService) RevokeAdminByEmail(ctx context.Context, email string) error {
	u, err := s.userByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("lookup %s: %w", email, err)
	}
	return auth.RevokeAdmin(s.enforcer, u.ID)
}

// SeedAdmins grants admin to every configured seed email that already has
// an account. Each account is seeded at most once, so a later revoke sticks.
// Accounts registered afterwards are picked up on the next run.
func (s *AuthService) SeedAdmins(ctx context.Context) error {
	for _, email := range s.cfg.SeedAdmins {
		u, err := s.userByEmail(ctx, normalizeEmail(email))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("lookup %s: %w", email, err)
		}
		if u.AdminSeeded {
			continue
		}
		if err := auth.GrantAdmin(s.enforcer, u.ID); err != nil {
			return err
		}
		if _, err := s.users.Update(ctx, u.ID, data.Fields{"admin_seeded": true}); err != nil {
			return fmt.Errorf("failed to mark %s as seeded: %w", email, err)
		}
		s.log.With(map[string]interface{}{"email": u.Email}).Info("seed admin granted")
	}
	return nil
}

// SweepLimiter forgets login throttling state idle for longer than idle.
func (s *AuthService) SweepLimiter(idle time.Duration) {
	s.limiter.Sweep(idle)
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
