package auth

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many attempts")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("weak password: too short")
	ErrResetExpired       = errors.New("reset token expired")
	ErrMissingIDToken     = errors.New("no id_token in token response")
	ErrEmailNotVerified   = errors.New("email not verified")
)

// Kind is a user-facing category of authentication failure.
type Kind string

const (
	KindNotVerified    Kind = "not-verified"
	KindBadCredentials Kind = "bad-credentials"
	KindRateLimited    Kind = "rate-limited"
	KindDuplicate      Kind = "duplicate-registration"
	KindWeakPassword   Kind = "weak-password"
	KindCancelled      Kind = "cancelled"
	KindExpired        Kind = "expired-session"
	KindNetwork        Kind = "network"
	KindOther          Kind = "other"
)

// AuthError is an authentication failure translated for display.
type AuthError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

var translations = []struct {
	kind    Kind
	message string
	match   func(string) bool
}{
	{KindNotVerified, "Пожалуйста, подтвердите ваш email", containsAny("email not verified", "not verified")},
	{KindBadCredentials, "Неверный email или пароль", containsAny("invalid", "credentials", "wrong password", "user not found")},
	{KindRateLimited, "Слишком много попыток. Попробуйте позже", containsAny("rate", "too many")},
	{KindDuplicate, "Пользователь с таким email уже существует", containsAny("already exists", "already registered", "email in use")},
	{KindWeakPassword, "Пароль слишком слабый. Минимум 6 символов", func(m string) bool {
		return strings.Contains(m, "weak") || (strings.Contains(m, "password") && strings.Contains(m, "short"))
	}},
	{KindCancelled, "Вход был отменен", containsAny("cancel", "popup")},
	{KindExpired, "Сессия истекла. Войдите снова", containsAny("expired", "token")},
	{KindNetwork, "Ошибка сети. Проверьте подключение", containsAny("network", "connection", "fetch")},
}

func containsAny(needles ...string) func(string) bool {
	return func(m string) bool {
		for _, n := range needles {
			if strings.Contains(m, n) {
				return true
			}
		}
		return false
	}
}

// TranslateError classifies err by its message. The first matching rule
// wins; unmatched errors keep their original message.
func TranslateError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	msg := strings.ToLower(err.Error())
	for _, t := range translations {
		if t.match(msg) {
			return &AuthError{Kind: t.kind, Message: t.message, Err: err}
		}
	}
	text := err.Error()
	if text == "" {
		text = "Произошла ошибка"
	}
	return &AuthError{Kind: KindOther, Message: text, Err: err}
}
