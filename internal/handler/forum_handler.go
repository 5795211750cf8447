package handler

import (
	"errors"
	"net/http"

	"finance-hub/internal/data"
	"finance-hub/internal/middleware"
	"finance-hub/internal/service"

	"github.com/go-chi/chi/v5"
)

const pendingNotice = "Спасибо! Сообщение появится после проверки модератором"

// ForumHandler serves the public forum.
type ForumHandler struct {
	responder
	forum *service.ForumService
}

// NewForumHandler creates a ForumHandler.
func NewForumHandler(r responder, forum *service.ForumService) *ForumHandler {
	return &ForumHandler{responder: r, forum: forum}
}

func (h *ForumHandler) index(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	cats, err := h.forum.Categories(r.Context())
	if err != nil {
		return fail(err, "Failed to load forum")
	}
	return h.page(w, r, "forum.html", map[string]interface{}{
		"Title":      "Форум",
		"Categories": cats,
	})
}

func (h *ForumHandler) categoryData(r *http.Request, id string, form *service.TopicInput) (map[string]interface{}, error) {
	ctx := r.Context()
	cat, err := h.forum.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	topics, err := h.forum.Topics(ctx, cat.ID, currentUser(r))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"Title":    cat.Name,
		"Category": cat,
		"Topics":   topics,
		"Form":     form,
	}, nil
}

func (h *ForumHandler) category(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pageData, err := h.categoryData(r, chi.URLParam(r, "id"), &service.TopicInput{})
	if err != nil {
		return fail(err, "Failed to load forum section")
	}
	return h.page(w, r, "forum_category.html", pageData)
}

func (h *ForumHandler) createTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	var in service.TopicInput
	err := decodeForm(r, &in)
	if err == nil {
		var topic *data.ForumTopic
		if topic, err = h.forum.CreateTopic(r.Context(), id, in, currentUser(r)); err == nil {
			notice := "Тема создана"
			if !topic.IsApproved {
				notice = pendingNotice
			}
			h.flash(r, notice)
			http.Redirect(w, r, "/forum/topic/"+topic.ID, http.StatusSeeOther)
			return nil
		}
	}
	pageData, loadErr := h.categoryData(r, id, &in)
	if loadErr != nil {
		return fail(loadErr, "Failed to load forum section")
	}
	return h.formError(w, r, "forum_category.html", err, pageData)
}

func (h *ForumHandler) topicData(r *http.Request, id string, count bool, form *service.ReplyInput) (map[string]interface{}, error) {
	ctx := r.Context()
	viewer := currentUser(r)
	load := h.forum.Topic
	if count {
		load = h.forum.ViewTopic
	}
	topic, err := load(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	posts, err := h.forum.Posts(ctx, topic.ID, viewer)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"Title": topic.Title,
		"Topic": topic,
		"Posts": posts,
		"Form":  form,
	}, nil
}

func (h *ForumHandler) topic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pageData, err := h.topicData(r, chi.URLParam(r, "id"), true, &service.ReplyInput{})
	if err != nil {
		return fail(err, "Failed to load topic")
	}
	return h.page(w, r, "forum_topic.html", pageData)
}

func (h *ForumHandler) reply(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	to := "/forum/topic/" + id
	var in service.ReplyInput
	err := decodeForm(r, &in)
	if err == nil {
		var post *data.ForumPost
		if post, err = h.forum.Reply(r.Context(), id, in, currentUser(r)); err == nil {
			notice := "Ответ опубликован"
			if !post.IsApproved {
				notice = pendingNotice
			}
			return h.done(w, r, nil, notice, to)
		}
	}
	if errors.Is(err, service.ErrTopicLocked) || errors.Is(err, service.ErrNotFound) {
		return h.done(w, r, err, "", to)
	}
	pageData, loadErr := h.topicData(r, id, false, &in)
	if loadErr != nil {
		return fail(loadErr, "Failed to load topic")
	}
	return h.formError(w, r, "forum_topic.html", err, pageData)
}
