package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"finance-hub/internal/auth"
	"finance-hub/internal/logger"
	"finance-hub/internal/middleware"
	"finance-hub/internal/service"
	"finance-hub/internal/session"
	"finance-hub/internal/view"
)

const genericFailure = "Не удалось выполнить действие. Попробуйте ещё раз"

var messages = []struct {
	err error
	msg string
}{
	{service.ErrSlugTaken, "Такой адрес (slug) уже занят"},
	{service.ErrAlreadySubscribed, "Этот email уже подписан на рассылку"},
	{service.ErrCategoryInUse, "В категории есть материалы. Выберите категорию, куда их перенести"},
	{service.ErrCategoryMismatch, "Категория относится к другому разделу"},
	{service.ErrCategoryNotFound, "Категория не найдена"},
	{service.ErrTopicLocked, "Тема закрыта для новых ответов"},
	{service.ErrAssistUnavailable, "Сервис ИИ временно недоступен. Попробуйте позже"},
	{service.ErrNotFound, "Запись не найдена"},
}

// describe turns a service error into a message for the user. The second
// result is false for errors the user cannot act on.
func describe(err error) (string, bool) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return "Проверьте правильность заполнения формы", true
	}
	var ae *auth.AuthError
	if errors.As(err, &ae) {
		return ae.Message, true
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg, true
		}
	}
	return genericFailure, false
}

// responder holds what every handler needs to answer a request.
type responder struct {
	view     *view.View
	sessions session.Manager
	log      logger.Logger
}

// render executes a page template with the pending flash messages and
// writes it with the given status.
func (h *responder) render(w http.ResponseWriter, r *http.Request, name string, status int, data map[string]interface{}) *middleware.AppError {
	if data == nil {
		data = make(map[string]interface{})
	}
	ctx := r.Context()
	data["Flash"] = h.sessions.PopString(ctx, session.KeyFlash)
	data["FlashError"] = h.sessions.PopString(ctx, session.KeyFlashError)

	buf := new(bytes.Buffer)
	if err := h.view.Render(buf, r, name, data); err != nil {
		return &middleware.AppError{Error: err, Message: "Не удалось отобразить страницу", Code: http.StatusInternalServerError}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

func (h *responder) page(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) *middleware.AppError {
	return h.render(w, r, name, http.StatusOK, data)
}

// formError re-renders a form after a failed submit.
func (h *responder) formError(w http.ResponseWriter, r *http.Request, name string, err error, data map[string]interface{}) *middleware.AppError {
	msg, known := describe(err)
	status := http.StatusUnprocessableEntity
	if !known {
		h.log.Error(err, "Form submission failed")
		status = http.StatusInternalServerError
	}
	data["Error"] = msg
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		data["Errors"] = ve.Fields
	}
	return h.render(w, r, name, status, data)
}

func (h *responder) flash(r *http.Request, msg string) {
	h.sessions.Put(r.Context(), session.KeyFlash, msg)
}

func (h *responder) flashError(r *http.Request, err error) {
	msg, known := describe(err)
	if !known {
		h.log.Error(err, "Action failed")
	}
	h.sessions.Put(r.Context(), session.KeyFlashError, msg)
}

// done redirects after a POST with either a success or an error flash.
func (h *responder) done(w http.ResponseWriter, r *http.Request, err error, ok, to string) *middleware.AppError {
	if err != nil {
		h.flashError(r, err)
	} else if ok != "" {
		h.flash(r, ok)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
	return nil
}

// fail maps a load error to an error page.
func fail(err error, msg string) *middleware.AppError {
	if errors.Is(err, service.ErrNotFound) {
		return &middleware.AppError{Error: err, Message: "Страница не найдена", Code: http.StatusNotFound}
	}
	return &middleware.AppError{Error: err, Message: msg, Code: http.StatusInternalServerError}
}

// back returns the local path named by the "next" form value, or fallback.
func back(r *http.Request, fallback string) string {
	next := r.FormValue("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

func currentUser(r *http.Request) *session.UserInfo {
	return session.GetUserInfo(r.Context())
}
