package service

import (
	"context"
	"strings"
	"time"

	"finance-hub/internal/content"
	"finance-hub/internal/data"
)

// Fallback lengths for news summary fields.
const (
	ExcerptRunes         = 200
	MetaDescriptionRunes = 160
	RelatedNewsLimit     = 3
)

// NewsInput is the admin news form.
type NewsInput struct {
	Title           string `form:"title" validate:"required,max=255"`
	Slug            string `form:"slug" validate:"max=255"`
	CategoryID      string `form:"category_id" validate:"required"`
	Content         string `form:"content" validate:"required"`
	Excerpt         string `form:"excerpt" validate:"max=1000"`
	ImageURL        string `form:"image_url" validate:"omitempty,url"`
	SourceURL       string `form:"source_url" validate:"omitempty,url"`
	Status          string `form:"status" validate:"oneof=draft published"`
	IsFeatured      bool   `form:"is_featured"`
	MetaTitle       string `form:"meta_title" validate:"max=255"`
	MetaDescription string `form:"meta_description" validate:"max=1000"`
}

// applyFallbacks fills empty summary and SEO fields from the body.
func (in *NewsInput) applyFallbacks() {
	if strings.TrimSpace(in.Excerpt) == "" {
		in.Excerpt = content.Truncate(strings.TrimSpace(in.Content), ExcerptRunes)
	}
	if strings.TrimSpace(in.MetaTitle) == "" {
		in.MetaTitle = in.Title
	}
	if strings.TrimSpace(in.MetaDescription) == "" {
		in.MetaDescription = in.Excerpt
		if in.MetaDescription == "" {
			in.MetaDescription = content.Truncate(strings.TrimSpace(in.Content), MetaDescriptionRunes)
		}
	}
}

// NewsService manages news items.
type NewsService struct {
	news       Collection[data.News]
	categories *CategoryService
	notify     ChangeNotifier
	now        func() time.Time
}

// NewNewsService creates a NewsService.
func NewNewsService(news Collection[data.News], categories *CategoryService, notify ChangeNotifier) *NewsService {
	return &NewsService{
		news:       news,
		categories: categories,
		notify:     notifierOrNoop(notify),
		now:        time.Now,
	}
}

// List returns published news matching f, newest first.
func (s *NewsService) List(ctx context.Context, f Filter) ([]data.News, error) {
	ok, err := s.categories.inPartition(ctx, data.KindNews, f.CategoryID)
	if err != nil || !ok {
		return []data.News{}, err
	}
	q := data.Query{Where: []data.Cond{published}, OrderBy: "created_at", Desc: true, Limit: SearchWindow}
	if f.CategoryID != "" {
		q.Where = append(q.Where, data.Eq("category_id", f.CategoryID))
	}
	rows, err := s.news.List(ctx, q)
	if err != nil {
		return nil, err
	}
	rows = filterText(rows, f.Query, func(n *data.News) []string { return []string{n.Title, n.Excerpt} })
	return s.label(ctx, rows)
}

// AdminList returns every news item, newest first.
func (s *NewsService) AdminList(ctx context.Context) ([]data.News, error) {
	rows, err := s.news.List(ctx, data.Query{OrderBy: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}
	return s.label(ctx, rows)
}

// Published returns every published item, newest first.
func (s *NewsService) Published(ctx context.Context) ([]data.News, error) {
	return s.news.List(ctx, data.Query{Where: []data.Cond{published}, OrderBy: "created_at", Desc: true})
}

// Featured returns up to limit featured published items in insertion order.
func (s *NewsService) Featured(ctx context.Context, limit int) ([]data.News, error) {
	rows, err := s.news.List(ctx, data.Query{
		Where:   []data.Cond{published, data.Eq("is_featured", true)},
		OrderBy: "created_at",
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	return s.label(ctx, rows)
}

// Latest returns the newest published items.
func (s *NewsService) Latest(ctx context.Context, limit int) ([]data.News, error) {
	rows, err := s.news.List(ctx, data.Query{Where: []data.Cond{published}, OrderBy: "created_at", Desc: true, Limit: limit})
	if err != nil {
		return nil, err
	}
	return s.label(ctx, rows)
}

// View loads a published item by slug and counts the view.
func (s *NewsService) View(ctx context.Context, slug string) (*data.News, error) {
	n, err := first(ctx, s.news, data.Query{Where: []data.Cond{data.Eq("slug", slug), published}})
	if err != nil {
		return nil, err
	}
	if err := s.news.Increment(ctx, n.ID, "views", 1); err != nil {
		return nil, err
	}
	n.Views++
	labels, err := s.categories.Labels(ctx, data.KindNews)
	if err != nil {
		return nil, err
	}
	n.CategoryName = Label(labels, n.CategoryID)
	return n, nil
}

// Related returns other published items from the same category.
func (s *NewsService) Related(ctx context.Context, n *data.News, limit int) ([]data.News, error) {
	rows, err := s.news.List(ctx, data.Query{
		Where:   []data.Cond{published, data.Eq("category_id", n.CategoryID)},
		OrderBy: "created_at",
		Desc:    true,
		Limit:   limit + 1,
	})
	if err != nil {
		return nil, err
	}
	related := make([]data.News, 0, limit)
	for _, r := range rows {
		if r.ID != n.ID && len(related) < limit {
			related = append(related, r)
		}
	}
	return related, nil
}

// Get returns an item by id regardless of status.
func (s *NewsService) Get(ctx context.Context, id string) (*data.News, error) {
	return s.news.Get(ctx, id)
}

// Create stores a news item. An empty slug is derived from the title.
func (s *NewsService) Create(ctx context.Context, in NewsInput, ownerID string) (*data.News, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	item := &data.News{
		Title:           in.Title,
		CategoryID:      in.CategoryID,
		Content:         in.Content,
		Excerpt:         in.Excerpt,
		ImageURL:        in.ImageURL,
		SourceURL:       in.SourceURL,
		Status:          in.Status,
		IsFeatured:      in.IsFeatured,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		OwnerID:         ownerID,
	}
	_, err := insertSlugged(in.Title, in.Slug, s.now(), func(slug string) error {
		item.Slug = slug
		return s.news.Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	s.notify.ContentChanged(ctx)
	return item, nil
}

// Update replaces the editable fields. An empty slug keeps the current one.
func (s *NewsService) Update(ctx context.Context, id string, in NewsInput) (*data.News, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	fields := data.Fields{
		"title":            in.Title,
		"category_id":      in.CategoryID,
		"content":          in.Content,
		"excerpt":          in.Excerpt,
		"image_url":        in.ImageURL,
		"source_url":       in.SourceURL,
		"status":           in.Status,
		"is_featured":      in.IsFeatured,
		"meta_title":       in.MetaTitle,
		"meta_description": in.MetaDescription,
	}
	if strings.TrimSpace(in.Slug) != "" {
		slug, err := normalizeSlug(in.Slug)
		if err != nil {
			return nil, err
		}
		fields["slug"] = slug
	}
	n, err := updateSlugged(ctx, s.news, id, fields)
	if err != nil {
		return nil, err
	}
	s.notify.ContentChanged(ctx)
	return n, nil
}

// Delete removes a news item.
func (s *NewsService) Delete(ctx context.Context, id string) error {
	if err := s.news.Delete(ctx, id); err != nil {
		return err
	}
	s.notify.ContentChanged(ctx)
	return nil
}

func (s *NewsService) check(ctx context.Context, in *NewsInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.SourceURL = strings.TrimSpace(in.SourceURL)
	in.Status = defaultStatus(in.Status)
	if err := validateStruct(in); err != nil {
		return err
	}
	if _, err := s.categories.Resolve(ctx, data.KindNews, in.CategoryID); err != nil {
		return err
	}
	in.applyFallbacks()
	return nil
}

func (s *NewsService) label(ctx context.Context, rows []data.News) ([]data.News, error) {
	labels, err := s.categories.Labels(ctx, data.KindNews)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].CategoryName = Label(labels, rows[i].CategoryID)
	}
	return rows, nil
}
