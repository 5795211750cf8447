//go:build integration

package service

import (
	"context"
	"errors"
	"testing"

	"finance-hub/internal/content"
	"finance-hub/internal/data"
	"finance-hub/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func topicCount(t *testing.T, h *harness, categoryID string, viewer *session.UserInfo) int {
	t.Helper()
	rows, err := h.forum.Topics(context.Background(), categoryID, viewer)
	require.NoError(t, err)
	return len(rows)
}

func TestForum_PublicTopicIsPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	general := h.category(t, "Общий раздел", data.KindForum)
	require.NoError(t, h.store.Users.Create(ctx, &data.User{Meta: data.Meta{ID: member.ID}, Email: member.Email, DisplayName: "Иван"}))

	topic, err := h.forum.CreateTopic(ctx, general.ID, TopicInput{Title: "Какой вклад открыть?", Content: "<b>Подскажите</b> вклад"}, member)
	require.NoError(t, err)
	assert.Equal(t, PublicSubmissionApproved, topic.IsApproved)

	posts, err := h.store.Posts.List(ctx, data.Query{Where: []data.Cond{data.Eq("topic_id", topic.ID)}})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.False(t, posts[0].IsApproved)
	assert.Equal(t, "Подскажите вклад", posts[0].Content)

	assert.Equal(t, 0, topicCount(t, h, general.ID, anonymous))
	assert.Equal(t, 0, topicCount(t, h, general.ID, stranger))
	assert.Equal(t, 1, topicCount(t, h, general.ID, member))
	assert.Equal(t, 1, topicCount(t, h, general.ID, admin))

	_, err = h.forum.Topic(ctx, topic.ID, anonymous)
	assert.ErrorIs(t, err, ErrNotFound)

	own, err := h.forum.Posts(ctx, topic.ID, member)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.True(t, own[0].IsOriginal)
	assert.Equal(t, "Иван", own[0].AuthorName)

	queue, err := h.forum.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, queue.Topics, 1)
	assert.Len(t, queue.Posts, 1)
	n, err := h.forum.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestForum_ApproveIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	general := h.category(t, "Общий раздел", data.KindForum)

	topic, err := h.forum.CreateTopic(ctx, general.ID, TopicInput{Title: "Ипотека в 2025", Content: "Что думаете?"}, member)
	require.NoError(t, err)
	posts, err := h.store.Posts.List(ctx, data.Query{Where: []data.Cond{data.Eq("topic_id", topic.ID)}})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, h.forum.ApproveTopic(ctx, topic.ID))
		require.NoError(t, h.forum.ApprovePost(ctx, posts[0].ID))
	}

	stored, err := h.store.Topics.Get(ctx, topic.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsApproved)
	assert.Equal(t, 1, topicCount(t, h, general.ID, anonymous))

	visible, err := h.forum.Posts(ctx, topic.ID, anonymous)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	n, err := h.forum.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, h.forum.ApproveTopic(ctx, "missing"), ErrNotFound)
}

func TestForum_AdminTopicApprovedWithoutPosts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	general := h.category(t, "Общий раздел", data.KindForum)

	topic, err := h.forum.AdminCreateTopic(ctx, AdminTopicInput{Title: "Правила форума", CategoryID: general.ID, IsPinned: true}, admin)
	require.NoError(t, err)
	assert.True(t, topic.IsApproved)
	assert.True(t, topic.IsPinned)
	assert.Nil(t, topic.LastPostAt)

	posts, err := h.forum.Posts(ctx, topic.ID, anonymous)
	require.NoError(t, err)
	assert.Empty(t, posts)

	withBody, err := h.forum.AdminCreateTopic(ctx, AdminTopicInput{Title: "Новости форума", CategoryID: general.ID, Content: "Привет"}, admin)
	require.NoError(t, err)
	posts, err = h.forum.Posts(ctx, withBody.ID, anonymous)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.True(t, posts[0].IsApproved)
}

func TestForum_TopicsRejectForeignCategory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cards := h.category(t, "Карты", data.KindOffer)

	_, err := h.forum.CreateTopic(ctx, cards.ID, TopicInput{Title: "Вопрос", Content: "текст"}, member)
	assert.ErrorIs(t, err, ErrCategoryMismatch)

	_, err = h.forum.Category(ctx, cards.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForum_PinnedFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	general := h.category(t, "Общий раздел", data.KindForum)

	pinned, err := h.forum.AdminCreateTopic(ctx, AdminTopicInput{Title: "Закреп", CategoryID: general.ID, Content: "a", IsPinned: true}, admin)
	require.NoError(t, err)
	_, err = h.forum.AdminCreateTopic(ctx, AdminTopicInput{Title: "Свежая тема", CategoryID: general.ID, Content: "b"}, admin)
	require.NoError(t, err)

	rows, err := h.forum.Topics(ctx, general.ID, anonymous)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, pinned.ID, rows[0].ID)

	cats, err := h.forum.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, 2, cats[0].Topics)
}

func TestForum_ReplyRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	general := h.category(t, "Общий раздел", data.KindForum)

	topic, err := h.forum.AdminCreateTopic(ctx, AdminTopicInput{Title: "Обсуждение", CategoryID: general.ID, Content: "Первый"}, admin)
	require.NoError(t, err)
	require.NotNil(t, topic.LastPostAt)
	before := *topic.LastPostAt

	reply, err := h.forum.Reply(ctx, topic.ID, ReplyInput{Content: "Ответ"}, member)
	require.NoError(t, err)
	assert.False(t, reply.IsApproved)

	bumped, err := h.store.Topics.Get(ctx, topic.ID)
	require.NoError(t, err)
	require.NotNil(t, bumped.LastPostAt)
	assert.True(t, bumped.LastPostAt.After(before))

	posts, err := h.forum.Posts(ctx, topic.ID, member)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.True(t, posts[0].IsOriginal)
	assert.False(t, posts[1].IsOriginal)

	posts, err = h.forum.Posts(ctx, topic.ID, stranger)
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	require.NoError(t, h.forum.SetLocked(ctx, topic.ID, true))
	_, err = h.forum.Reply(ctx, topic.ID, ReplyInput{Content: "Ещё"}, member)
	assert.ErrorIs(t, err, ErrTopicLocked)

	adminReply, err := h.forum.Reply(ctx, topic.ID, ReplyInput{Content: "Модератор"}, admin)
	require.NoError(t, err)
	assert.True(t, adminReply.IsApproved)

	_, err = h.forum.Reply(ctx, topic.ID, ReplyInput{Content: "   "}, member)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestForum_ViewAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	general := h.category(t, "Общий раздел", data.KindForum)

	topic, err := h.forum.AdminCreateTopic(ctx, AdminTopicInput{Title: "Обсуждение", CategoryID: general.ID, Content: "Первый"}, admin)
	require.NoError(t, err)
	_, err = h.forum.Reply(ctx, topic.ID, ReplyInput{Content: "Ответ"}, admin)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := h.forum.ViewTopic(ctx, topic.ID, anonymous)
		require.NoError(t, err)
	}
	stored, err := h.store.Topics.Get(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stored.Views)

	require.NoError(t, h.forum.DeleteTopic(ctx, topic.ID))
	left, err := h.store.Posts.Count(ctx, data.Query{Where: []data.Cond{data.Eq("topic_id", topic.ID)}})
	require.NoError(t, err)
	assert.Zero(t, left)
	_, err = h.store.Topics.Get(ctx, topic.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// brokenPosts refuses every insert.
type brokenPosts struct {
	*data.Table[data.ForumPost]
}

func (brokenPosts) Create(context.Context, *data.ForumPost) error {
	return errors.New("disk full")
}

func TestForum_FailedFirstPostLeavesNoTopic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	general := h.category(t, "Общий раздел", data.KindForum)
	forum := NewForumService(h.store.Topics, brokenPosts{h.store.Posts}, h.store.Users, h.categories, content.NewRenderer())

	_, err := forum.AdminCreateTopic(ctx, AdminTopicInput{Title: "Объявление", CategoryID: general.ID, Content: "Текст"}, admin)
	require.Error(t, err)

	_, err = forum.CreateTopic(ctx, general.ID, TopicInput{Title: "Вопрос", Content: "Текст"}, member)
	require.Error(t, err)

	n, err := h.store.Topics.Count(ctx, data.Query{})
	require.NoError(t, err)
	assert.Zero(t, n)
}
