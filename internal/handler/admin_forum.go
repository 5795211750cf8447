package handler

import (
	"net/http"

	"finance-hub/internal/data"
	"finance-hub/internal/middleware"
	"finance-hub/internal/service"

	"github.com/go-chi/chi/v5"
)

func (h *AdminHandler) forumPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	topics, err := h.forum.AllTopics(ctx)
	if err != nil {
		return fail(err, "Failed to load topics")
	}
	queue, err := h.forum.Pending(ctx)
	if err != nil {
		return fail(err, "Failed to load moderation queue")
	}
	return h.page(w, r, "admin_forum.html", map[string]interface{}{
		"Title":   "Форум",
		"Topics":  topics,
		"Pending": queue,
	})
}

func (h *AdminHandler) newTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.editor(w, r, "admin_topic_form.html", data.KindForum, &service.AdminTopicInput{}, "/admin/forum/topics", nil)
}

func (h *AdminHandler) createTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in service.AdminTopicInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.forum.AdminCreateTopic(r.Context(), in, currentUser(r))
	}
	if err != nil {
		return h.editor(w, r, "admin_topic_form.html", data.KindForum, &in, "/admin/forum/topics", err)
	}
	return h.done(w, r, nil, "Тема создана", "/admin/forum")
}

func (h *AdminHandler) editTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	t, err := h.forum.Topic(r.Context(), chi.URLParam(r, "id"), currentUser(r))
	if err != nil {
		return fail(err, "Failed to load topic")
	}
	form := &service.AdminTopicInput{
		Title:      t.Title,
		CategoryID: t.CategoryID,
		IsPinned:   t.IsPinned,
		IsLocked:   t.IsLocked,
	}
	return h.editor(w, r, "admin_topic_form.html", data.KindForum, form, "/admin/forum/topics/"+t.ID, nil)
}

func (h *AdminHandler) updateTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	var in service.AdminTopicInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.forum.UpdateTopic(r.Context(), id, in)
	}
	if err != nil {
		return h.editor(w, r, "admin_topic_form.html", data.KindForum, &in, "/admin/forum/topics/"+id, err)
	}
	return h.done(w, r, nil, "Тема сохранена", "/admin/forum")
}

func (h *AdminHandler) approveTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.forum.ApproveTopic(r.Context(), chi.URLParam(r, "id"))
	return h.done(w, r, err, "Тема одобрена", back(r, "/admin/forum"))
}

func (h *AdminHandler) pinTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pinned := checked(r.FormValue("value"))
	err := h.forum.SetPinned(r.Context(), chi.URLParam(r, "id"), pinned)
	msg := "Тема откреплена"
	if pinned {
		msg = "Тема закреплена"
	}
	return h.done(w, r, err, msg, back(r, "/admin/forum"))
}

func (h *AdminHandler) lockTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	locked := checked(r.FormValue("value"))
	err := h.forum.SetLocked(r.Context(), chi.URLParam(r, "id"), locked)
	msg := "Тема открыта"
	if locked {
		msg = "Тема закрыта"
	}
	return h.done(w, r, err, msg, back(r, "/admin/forum"))
}

// deleteTopic rejects a topic together with its posts.
func (h *AdminHandler) deleteTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.forum.DeleteTopic(r.Context(), chi.URLParam(r, "id"))
	return h.done(w, r, err, "Тема удалена", "/admin/forum")
}

func (h *AdminHandler) approvePost(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.forum.ApprovePost(r.Context(), chi.URLParam(r, "id"))
	return h.done(w, r, err, "Сообщение одобрено", back(r, "/admin/forum"))
}

func (h *AdminHandler) deletePost(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.forum.DeletePost(r.Context(), chi.URLParam(r, "id"))
	return h.done(w, r, err, "Сообщение удалено", back(r, "/admin/forum"))
}
