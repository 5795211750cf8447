package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"finance-hub/internal/auth"
	"finance-hub/internal/middleware"
	"finance-hub/internal/service"
	"finance-hub/internal/session"
)

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	responder
	accounts *service.AuthService
	oidc     *auth.Authenticator
}

// NewAuthHandler creates a new AuthHandler. oidc may be nil when external
// sign-in is disabled.
func NewAuthHandler(r responder, accounts *service.AuthService, oidc *auth.Authenticator) *AuthHandler {
	return &AuthHandler{responder: r, accounts: accounts, oidc: oidc}
}

type credentials struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// authError re-renders an account form with the translated failure.
func (h *AuthHandler) authError(w http.ResponseWriter, r *http.Request, name string, err error, data map[string]interface{}) *middleware.AppError {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return h.formError(w, r, name, err, data)
	}
	ae := auth.TranslateError(err)
	status := http.StatusUnauthorized
	switch ae.Kind {
	case auth.KindRateLimited:
		status = http.StatusTooManyRequests
	case auth.KindDuplicate, auth.KindWeakPassword:
		status = http.StatusUnprocessableEntity
	case auth.KindOther, auth.KindNetwork:
		h.log.Error(err, "Authentication failed")
		status = http.StatusInternalServerError
	}
	data["Error"] = ae.Message
	return h.render(w, r, name, status, data)
}

// signIn binds the session to the user. The token is renewed to prevent
// session fixation.
func (h *AuthHandler) signIn(r *http.Request, user *session.UserInfo) error {
	ctx := r.Context()
	if err := h.sessions.RenewToken(ctx); err != nil {
		return err
	}
	h.sessions.Put(ctx, session.KeyUserID, user.ID)
	return nil
}

func (h *AuthHandler) loginPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.page(w, r, "login.html", map[string]interface{}{
		"Title": "Вход",
		"Form":  &credentials{},
		"Next":  back(r, ""),
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in credentials
	if err := decodeForm(r, &in); err != nil {
		return &middleware.AppError{Error: err, Message: "Некорректный запрос", Code: http.StatusBadRequest}
	}
	user, err := h.accounts.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		in.Password = ""
		return h.authError(w, r, "login.html", err, map[string]interface{}{
			"Title": "Вход",
			"Form":  &in,
			"Next":  back(r, ""),
		})
	}
	if err := h.signIn(r, user); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, back(r, "/"), http.StatusSeeOther)
	return nil
}

func (h *AuthHandler) registerPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.page(w, r, "register.html", map[string]interface{}{
		"Title": "Регистрация",
		"Form":  &service.SignUpInput{},
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in service.SignUpInput
	err := decodeForm(r, &in)
	var user *session.UserInfo
	if err == nil {
		user, err = h.accounts.SignUp(r.Context(), in)
	}
	if err != nil {
		in.Password = ""
		return h.authError(w, r, "register.html", err, map[string]interface{}{
			"Title": "Регистрация",
			"Form":  &in,
		})
	}
	if err := h.signIn(r, user); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	h.flash(r, "Добро пожаловать! Регистрация завершена")
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}

func (h *AuthHandler) forgotPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.page(w, r, "forgot_password.html", map[string]interface{}{"Title": "Восстановление пароля"})
}

// forgot always reports success so the form does not reveal which emails
// are registered.
func (h *AuthHandler) forgot(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.accounts.SendPasswordReset(r.Context(), r.FormValue("email")); err != nil {
		h.log.Error(err, "Failed to send password reset")
	}
	h.flash(r, "Если такой email зарегистрирован, мы отправили на него ссылку для сброса пароля")
	http.Redirect(w, r, "/forgot-password", http.StatusSeeOther)
	return nil
}

func (h *AuthHandler) resetPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.page(w, r, "reset_password.html", map[string]interface{}{
		"Title": "Новый пароль",
		"Token": r.URL.Query().Get("token"),
	})
}

func (h *AuthHandler) reset(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	token := r.FormValue("token")
	if err := h.accounts.ResetPassword(r.Context(), token, r.FormValue("password")); err != nil {
		return h.authError(w, r, "reset_password.html", err, map[string]interface{}{
			"Title": "Новый пароль",
			"Token": token,
		})
	}
	h.flash(r, "Пароль изменён. Войдите с новым паролем")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return nil
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to end session", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}

// handleLogin redirects the user to the OIDC provider to log in.
// It uses a random 'state' string kept in the session for CSRF protection.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.oidc == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil
	}
	state, err := randString(16)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Internal Server Error", Code: http.StatusInternalServerError}
	}
	h.sessions.Put(r.Context(), session.KeyOIDCState, state)
	http.Redirect(w, r, h.oidc.AuthCodeURL(state), http.StatusFound)
	return nil
}

// handleCallback is the redirect URL for the OIDC provider.
// It handles the code exchange and links the identity to a local account.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.oidc == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil
	}
	ctx := r.Context()
	// Verify the state parameter to prevent CSRF attacks.
	state := h.sessions.PopString(ctx, session.KeyOIDCState)
	if state == "" || r.URL.Query().Get("state") != state {
		return &middleware.AppError{Error: errors.New("oidc state mismatch"), Message: "state did not match", Code: http.StatusBadRequest}
	}
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		return h.done(w, r, auth.TranslateError(errors.New(errParam)), "", "/login")
	}

	claims, err := h.oidc.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		h.log.Error(err, "OIDC exchange failed")
		return h.done(w, r, auth.TranslateError(err), "", "/login")
	}
	user, err := h.accounts.SignInOIDC(ctx, claims)
	if err != nil {
		return h.done(w, r, auth.TranslateError(err), "", "/login")
	}
	if err := h.signIn(r, user); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
