//go:build integration

package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"finance-hub/internal/auth"
	"finance-hub/internal/config"
	"finance-hub/internal/data/datatest"
	"finance-hub/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type captureMailer struct {
	email, link string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.email, m.link = email, link
	return nil
}

func (m *captureMailer) token(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(m.link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func newAuthService(t *testing.T, cfg config.AuthConfig) (*AuthService, *captureMailer) {
	t.Helper()
	store := datatest.NewStore(t)
	e, err := auth.NewMemoryEnforcer("../../auth_model.conf")
	require.NoError(t, err)
	auth.SeedDefaultPolicies(e, logger.Nop())

	cfg.BcryptCost = bcrypt.MinCost
	if cfg.LoginBurst == 0 {
		cfg.LoginBurst = 10
	}
	mailer := &captureMailer{}
	return NewAuthService(store.Users, store.Resets, e, mailer, cfg, "https://hub.example/", logger.Nop()), mailer
}

func TestAuth_SignUpAndSignIn(t *testing.T) {
	svc, _ := newAuthService(t, config.AuthConfig{})
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpInput{Email: " Ivan@Example.com ", Password: "secret1", DisplayName: "Иван"})
	require.NoError(t, err)
	assert.Equal(t, "ivan@example.com", user.Email)
	assert.Contains(t, user.Roles, auth.RoleUser)
	assert.False(t, user.IsAdmin())

	_, err = svc.SignUp(ctx, SignUpInput{Email: "ivan@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
	assert.Equal(t, auth.KindDuplicate, auth.TranslateError(err).Kind)

	_, err = svc.SignUp(ctx, SignUpInput{Email: "short@example.com", Password: "123"})
	assert.ErrorIs(t, err, auth.ErrWeakPassword)

	signedIn, err := svc.SignIn(ctx, "IVAN@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, signedIn.ID)
	assert.Equal(t, "Иван", signedIn.Name())

	_, err = svc.SignIn(ctx, "ivan@example.com", "wrong-one")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	reloaded, err := svc.UserInfo(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, reloaded.Email)
}

func TestAuth_SeedAdmins(t *testing.T) {
	svc, _ := newAuthService(t, config.AuthConfig{SeedAdmins: []string{"Boss@Example.com", "later@example.com"}})
	ctx := context.Background()

	boss, err := svc.SignUp(ctx, SignUpInput{Email: "boss@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, boss.IsAdmin(), "registering a listed email grants nothing by itself")

	plain, err := svc.SignUp(ctx, SignUpInput{Email: "plain@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, plain.IsAdmin())

	require.NoError(t, svc.SeedAdmins(ctx))
	info, err := svc.UserInfo(ctx, boss.ID)
	require.NoError(t, err)
	assert.True(t, info.IsAdmin())
	info, err = svc.UserInfo(ctx, plain.ID)
	require.NoError(t, err)
	assert.False(t, info.IsAdmin())

	require.NoError(t, svc.GrantAdminByEmail(ctx, "plain@example.com"))
	info, err = svc.UserInfo(ctx, plain.ID)
	require.NoError(t, err)
	assert.True(t, info.IsAdmin())

	require.NoError(t, svc.RevokeAdminByEmail(ctx, "plain@example.com"))
	info, err = svc.UserInfo(ctx, plain.ID)
	require.NoError(t, err)
	assert.False(t, info.IsAdmin())

	assert.ErrorIs(t, svc.GrantAdminByEmail(ctx, "ghost@example.com"), ErrNotFound)
}

func TestAuth_RevokedSeedAdminStaysRevoked(t *testing.T) {
	svc, _ := newAuthService(t, config.AuthConfig{SeedAdmins: []string{"boss@example.com"}})
	ctx := context.Background()

	boss, err := svc.SignUp(ctx, SignUpInput{Email: "boss@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.SeedAdmins(ctx))

	require.NoError(t, svc.RevokeAdminByEmail(ctx, "boss@example.com"))

	signedIn, err := svc.SignIn(ctx, "boss@example.com", "secret1")
	require.NoError(t, err)
	assert.False(t, signedIn.IsAdmin())

	// A restart runs the seed again.
	require.NoError(t, svc.SeedAdmins(ctx))
	info, err := svc.UserInfo(ctx, boss.ID)
	require.NoError(t, err)
	assert.False(t, info.IsAdmin())
}

func TestAuth_RateLimited(t *testing.T) {
	svc, _ := newAuthService(t, config.AuthConfig{LoginPerMinute: 0.001, LoginBurst: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.SignIn(ctx, "victim@example.com", "guess")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}
	_, err := svc.SignIn(ctx, "Victim@example.com", "guess")
	assert.ErrorIs(t, err, auth.ErrRateLimited)
	assert.Equal(t, auth.KindRateLimited, auth.TranslateError(err).Kind)
}

func TestAuth_PasswordReset(t *testing.T) {
	svc, mailer := newAuthService(t, config.AuthConfig{ResetTokenTTL: time.Hour})
	ctx := context.Background()
	_, err := svc.SignUp(ctx, SignUpInput{Email: "ivan@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.SendPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, mailer.link)

	require.NoError(t, svc.SendPasswordReset(ctx, "IVAN@example.com"))
	assert.Equal(t, "ivan@example.com", mailer.email)
	token := mailer.token(t)
	require.NotEmpty(t, token)

	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "123"), auth.ErrWeakPassword)
	require.NoError(t, svc.ResetPassword(ctx, token, "new-secret"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "other-secret"), auth.ErrResetExpired)

	_, err = svc.SignIn(ctx, "ivan@example.com", "new-secret")
	require.NoError(t, err)
}

func TestAuth_PasswordResetExpires(t *testing.T) {
	svc, mailer := newAuthService(t, config.AuthConfig{ResetTokenTTL: time.Minute})
	ctx := context.Background()
	_, err := svc.SignUp(ctx, SignUpInput{Email: "ivan@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.SendPasswordReset(ctx, "ivan@example.com"))
	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }

	err = svc.ResetPassword(ctx, mailer.token(t), "new-secret")
	assert.ErrorIs(t, err, auth.ErrResetExpired)
	assert.Equal(t, auth.KindExpired, auth.TranslateError(err).Kind)
}

func TestAuth_OIDC(t *testing.T) {
	svc, _ := newAuthService(t, config.AuthConfig{})
	ctx := context.Background()

	_, err := svc.SignInOIDC(ctx, &auth.Claims{Email: "sso@example.com"})
	assert.ErrorIs(t, err, auth.ErrEmailNotVerified)
	assert.Equal(t, auth.KindNotVerified, auth.TranslateError(err).Kind)

	first, err := svc.SignInOIDC(ctx, &auth.Claims{Email: "SSO@example.com", EmailVerified: true, Name: "Сергей"})
	require.NoError(t, err)
	again, err := svc.SignInOIDC(ctx, &auth.Claims{Email: "sso@example.com", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Сергей", again.DisplayName)

	// No local password was ever set.
	_, err = svc.SignIn(ctx, "sso@example.com", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
