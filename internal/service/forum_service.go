package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"finance-hub/internal/content"
	"finance-hub/internal/data"
	"finance-hub/internal/session"
)

// PublicSubmissionApproved is the approval state of topics and posts
// created from the public forum pages. Admin-created content is always
// approved.
const PublicSubmissionApproved = false

// TopicInput is the public new-topic form. The first post is mandatory.
type TopicInput struct {
	Title   string `form:"title" validate:"required,min=3,max=255"`
	Content string `form:"content" validate:"required,max=20000"`
}

// AdminTopicInput is the back-office topic form. Content is optional.
type AdminTopicInput struct {
	Title      string `form:"title" validate:"required,max=255"`
	CategoryID string `form:"category_id" validate:"required"`
	Content    string `form:"content" validate:"max=20000"`
	IsPinned   bool   `form:"is_pinned"`
	IsLocked   bool   `form:"is_locked"`
}

// ReplyInput is the reply form.
type ReplyInput struct {
	Content string `form:"content" validate:"required,max=20000"`
}

// ForumCategory is a forum section with its visible topic count.
type ForumCategory struct {
	data.Category
	Topics int
}

// Moderation is the queue of content waiting for approval.
type Moderation struct {
	Topics []data.ForumTopic
	Posts  []data.ForumPost
}

// ForumService runs the forum and its moderation gate.
type ForumService struct {
	topics     Collection[data.ForumTopic]
	posts      Collection[data.ForumPost]
	users      Collection[data.User]
	categories *CategoryService
	text       *content.Renderer
	now        func() time.Time
}

// NewForumService creates a ForumService.
func NewForumService(topics Collection[data.ForumTopic], posts Collection[data.ForumPost], users Collection[data.User], categories *CategoryService, text *content.Renderer) *ForumService {
	return &ForumService{
		topics:     topics,
		posts:      posts,
		users:      users,
		categories: categories,
		text:       text,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func canSee(approved bool, authorID string, viewer *session.UserInfo) bool {
	if approved || viewer.IsAdmin() {
		return true
	}
	return !viewer.IsAnonymous() && authorID == viewer.ID
}

// Categories lists forum sections with the number of approved topics.
func (s *ForumService) Categories(ctx context.Context) ([]ForumCategory, error) {
	cats, err := s.categories.List(ctx, data.KindForum)
	if err != nil {
		return nil, err
	}
	out := make([]ForumCategory, 0, len(cats))
	for _, c := range cats {
		n, err := s.topics.Count(ctx, data.Query{Where: []data.Cond{
			data.Eq("category_id", c.ID),
			data.Eq("is_approved", true),
		}})
		if err != nil {
			return nil, err
		}
		out = append(out, ForumCategory{Category: c, Topics: n})
	}
	return out, nil
}

// Category returns a forum section.
func (s *ForumService) Category(ctx context.Context, id string) (*data.Category, error) {
	cat, err := s.categories.Resolve(ctx, data.KindForum, id)
	if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrCategoryMismatch) {
		return nil, ErrNotFound
	}
	return cat, err
}

// Topics lists the topics of a section visible to viewer: approved ones plus
// the viewer's own pending topics; admins see everything. Pinned topics come
// first, then by latest activity.
func (s *ForumService) Topics(ctx context.Context, categoryID string, viewer *session.UserInfo) ([]data.ForumTopic, error) {
	rows, err := s.topics.List(ctx, data.Query{
		Where:   []data.Cond{data.Eq("category_id", categoryID)},
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		return nil, err
	}
	visible := rows[:0]
	for _, t := range rows {
		if canSee(t.IsApproved, t.AuthorID, viewer) {
			visible = append(visible, t)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].IsPinned != visible[j].IsPinned {
			return visible[i].IsPinned
		}
		return activity(&visible[i]).After(activity(&visible[j]))
	})
	return visible, nil
}

func activity(t *data.ForumTopic) time.Time {
	if t.LastPostAt != nil {
		return *t.LastPostAt
	}
	return t.CreatedAt
}

// AllTopics lists every topic for the back office, newest first.
func (s *ForumService) AllTopics(ctx context.Context) ([]data.ForumTopic, error) {
	rows, err := s.topics.List(ctx, data.Query{OrderBy: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}
	labels, err := s.categories.Labels(ctx, data.KindForum)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].CategoryName = Label(labels, rows[i].CategoryID)
	}
	return rows, nil
}

// Topic returns a topic visible to viewer.
func (s *ForumService) Topic(ctx context.Context, id string, viewer *session.UserInfo) (*data.ForumTopic, error) {
	t, err := s.topics.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(t.IsApproved, t.AuthorID, viewer) {
		return nil, ErrNotFound
	}
	labels, err := s.categories.Labels(ctx, data.KindForum)
	if err != nil {
		return nil, err
	}
	t.CategoryName = Label(labels, t.CategoryID)
	return t, nil
}

// ViewTopic returns a visible topic and counts the view.
func (s *ForumService) ViewTopic(ctx context.Context, id string, viewer *session.UserInfo) (*data.ForumTopic, error) {
	t, err := s.Topic(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	if err := s.topics.Increment(ctx, id, "views", 1); err != nil {
		return nil, err
	}
	t.Views++
	return t, nil
}

// Posts returns the posts of a topic visible to viewer in creation order.
// The earliest post overall is flagged as the original post.
func (s *ForumService) Posts(ctx context.Context, topicID string, viewer *session.UserInfo) ([]data.ForumPost, error) {
	rows, err := s.posts.List(ctx, data.Query{
		Where:   []data.Cond{data.Eq("topic_id", topicID)},
		OrderBy: "created_at",
	})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	visible := make([]data.ForumPost, 0, len(rows))
	for i, p := range rows {
		if !canSee(p.IsApproved, p.AuthorID, viewer) {
			continue
		}
		p.IsOriginal = i == 0
		p.AuthorName = s.authorName(ctx, names, p.AuthorID)
		visible = append(visible, p)
	}
	return visible, nil
}

func (s *ForumService) authorName(ctx context.Context, cache map[string]string, id string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := "Участник"
	if u, err := s.users.Get(ctx, id); err == nil {
		name = u.DisplayName
		if name == "" {
			name = strings.SplitN(u.Email, "@", 2)[0]
		}
	}
	cache[id] = name
	return name
}

// CreateTopic opens a topic with its first post from the public forum.
// Both start with PublicSubmissionApproved.
func (s *ForumService) CreateTopic(ctx context.Context, categoryID string, in TopicInput, author *session.UserInfo) (*data.ForumTopic, error) {
	in.Title = s.clean(in.Title)
	in.Content = s.clean(in.Content)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	if _, err := s.categories.Resolve(ctx, data.KindForum, categoryID); err != nil {
		return nil, err
	}
	now := s.now()
	topic := &data.ForumTopic{
		Title:      in.Title,
		CategoryID: categoryID,
		AuthorID:   author.ID,
		IsApproved: PublicSubmissionApproved,
		LastPostAt: &now,
		OwnerID:    author.ID,
	}
	topic.CreatedAt = now
	if err := s.topics.Create(ctx, topic); err != nil {
		return nil, err
	}
	post := &data.ForumPost{
		TopicID:    topic.ID,
		Content:    in.Content,
		AuthorID:   author.ID,
		IsApproved: PublicSubmissionApproved,
		OwnerID:    author.ID,
	}
	post.CreatedAt = now
	if err := s.posts.Create(ctx, post); err != nil {
		// Without its first post the topic is unusable.
		_ = s.topics.Delete(ctx, topic.ID)
		return nil, err
	}
	return topic, nil
}

// AdminCreateTopic creates an approved topic, with a first post only when
// content is given.
func (s *ForumService) AdminCreateTopic(ctx context.Context, in AdminTopicInput, admin *session.UserInfo) (*data.ForumTopic, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	if _, err := s.categories.Resolve(ctx, data.KindForum, in.CategoryID); err != nil {
		return nil, err
	}
	now := s.now()
	topic := &data.ForumTopic{
		Title:      in.Title,
		CategoryID: in.CategoryID,
		AuthorID:   admin.ID,
		IsApproved: true,
		IsPinned:   in.IsPinned,
		IsLocked:   in.IsLocked,
		OwnerID:    admin.ID,
	}
	topic.CreatedAt = now
	if in.Content != "" {
		topic.LastPostAt = &now
	}
	if err := s.topics.Create(ctx, topic); err != nil {
		return nil, err
	}
	if in.Content != "" {
		post := &data.ForumPost{TopicID: topic.ID, Content: in.Content, AuthorID: admin.ID, IsApproved: true, OwnerID: admin.ID}
		post.CreatedAt = now
		if err := s.posts.Create(ctx, post); err != nil {
			_ = s.topics.Delete(ctx, topic.ID)
			return nil, err
		}
	}
	return topic, nil
}

// UpdateTopic edits a topic from the back office.
func (s *ForumService) UpdateTopic(ctx context.Context, id string, in AdminTopicInput) (*data.ForumTopic, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	if _, err := s.categories.Resolve(ctx, data.KindForum, in.CategoryID); err != nil {
		return nil, err
	}
	return s.topics.Update(ctx, id, data.Fields{
		"title":       in.Title,
		"category_id": in.CategoryID,
		"is_pinned":   in.IsPinned,
		"is_locked":   in.IsLocked,
	})
}

// Reply adds a post to a topic. Public replies start with
// PublicSubmissionApproved; admin replies are approved and may be posted to
// locked topics.
func (s *ForumService) Reply(ctx context.Context, topicID string, in ReplyInput, author *session.UserInfo) (*data.ForumPost, error) {
	in.Content = s.clean(in.Content)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	topic, err := s.Topic(ctx, topicID, author)
	if err != nil {
		return nil, err
	}
	admin := author.IsAdmin()
	if topic.IsLocked && !admin {
		return nil, ErrTopicLocked
	}
	// Posts are ordered by a second-resolution timestamp, so a reply must
	// land strictly after everything already in the topic.
	now := s.now()
	floor := topic.CreatedAt
	if topic.LastPostAt != nil && topic.LastPostAt.After(floor) {
		floor = *topic.LastPostAt
	}
	if !now.After(floor) {
		now = floor.Add(time.Second)
	}
	post := &data.ForumPost{
		TopicID:    topicID,
		Content:    in.Content,
		AuthorID:   author.ID,
		IsApproved: admin || PublicSubmissionApproved,
		OwnerID:    author.ID,
	}
	post.CreatedAt = now
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	if _, err := s.topics.Update(ctx, topicID, data.Fields{"last_post_at": now}); err != nil {
		return nil, err
	}
	return post, nil
}

// ApproveTopic marks a topic approved. Approving twice is a no-op.
func (s *ForumService) ApproveTopic(ctx context.Context, id string) error {
	_, err := s.topics.Update(ctx, id, data.Fields{"is_approved": true})
	return err
}

// ApprovePost marks a post approved. Approving twice is a no-op.
func (s *ForumService) ApprovePost(ctx context.Context, id string) error {
	_, err := s.posts.Update(ctx, id, data.Fields{"is_approved": true})
	return err
}

// SetPinned pins or unpins a topic.
func (s *ForumService) SetPinned(ctx context.Context, id string, pinned bool) error {
	_, err := s.topics.Update(ctx, id, data.Fields{"is_pinned": pinned})
	return err
}

// SetLocked locks or unlocks a topic.
func (s *ForumService) SetLocked(ctx context.Context, id string, locked bool) error {
	_, err := s.topics.Update(ctx, id, data.Fields{"is_locked": locked})
	return err
}

// DeleteTopic removes a topic and all of its posts.
func (s *ForumService) DeleteTopic(ctx context.Context, id string) error {
	posts, err := s.posts.List(ctx, data.Query{Where: []data.Cond{data.Eq("topic_id", id)}})
	if err != nil {
		return err
	}
	for _, p := range posts {
		if err := s.posts.Delete(ctx, p.ID); err != nil && !errors.Is(err, data.ErrNotFound) {
			return err
		}
	}
	return s.topics.Delete(ctx, id)
}

// DeletePost removes a single post. Rejection is deletion.
func (s *ForumService) DeletePost(ctx context.Context, id string) error {
	return s.posts.Delete(ctx, id)
}

// Pending returns every topic and post awaiting approval, oldest first.
func (s *ForumService) Pending(ctx context.Context) (*Moderation, error) {
	pendingQ := data.Query{Where: []data.Cond{data.Eq("is_approved", false)}, OrderBy: "created_at"}
	topics, err := s.topics.List(ctx, pendingQ)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.List(ctx, pendingQ)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	for i := range posts {
		posts[i].AuthorName = s.authorName(ctx, names, posts[i].AuthorID)
	}
	return &Moderation{Topics: topics, Posts: posts}, nil
}

// PendingCount is the size of the moderation queue.
func (s *ForumService) PendingCount(ctx context.Context) (int, error) {
	q := data.Query{Where: []data.Cond{data.Eq("is_approved", false)}}
	t, err := s.topics.Count(ctx, q)
	if err != nil {
		return 0, err
	}
	p, err := s.posts.Count(ctx, q)
	if err != nil {
		return 0, err
	}
	return t + p, nil
}

// clean strips markup from user-submitted text.
func (s *ForumService) clean(text string) string {
	return strings.TrimSpace(s.text.StripTags(text))
}
