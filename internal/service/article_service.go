package service

import (
	"context"
	"strings"
	"time"

	"finance-hub/internal/data"
)

// ArticleInput is the admin article form.
type ArticleInput struct {
	Title      string `form:"title" validate:"required,max=255"`
	Slug       string `form:"slug" validate:"max=255"`
	CategoryID string `form:"category_id" validate:"required"`
	Content    string `form:"content" validate:"required"`
	ImageURL   string `form:"image_url" validate:"omitempty,url"`
	Status     string `form:"status" validate:"oneof=draft published"`
	IsFeatured bool   `form:"is_featured"`
}

// ArticleService manages long-form articles.
type ArticleService struct {
	articles   Collection[data.Article]
	categories *CategoryService
	notify     ChangeNotifier
	now        func() time.Time
}

// NewArticleService creates an ArticleService.
func NewArticleService(articles Collection[data.Article], categories *CategoryService, notify ChangeNotifier) *ArticleService {
	return &ArticleService{
		articles:   articles,
		categories: categories,
		notify:     notifierOrNoop(notify),
		now:        time.Now,
	}
}

var published = data.Eq("status", data.StatusPublished)

// List returns published articles matching f, newest first.
func (s *ArticleService) List(ctx context.Context, f Filter) ([]data.Article, error) {
	ok, err := s.categories.inPartition(ctx, data.KindArticle, f.CategoryID)
	if err != nil || !ok {
		return []data.Article{}, err
	}
	q := data.Query{Where: []data.Cond{published}, OrderBy: "created_at", Desc: true, Limit: SearchWindow}
	if f.CategoryID != "" {
		q.Where = append(q.Where, data.Eq("category_id", f.CategoryID))
	}
	rows, err := s.articles.List(ctx, q)
	if err != nil {
		return nil, err
	}
	rows = filterText(rows, f.Query, func(a *data.Article) []string { return []string{a.Title, a.Content} })
	return s.label(ctx, rows)
}

// AdminList returns every article, drafts included, newest first.
func (s *ArticleService) AdminList(ctx context.Context) ([]data.Article, error) {
	rows, err := s.articles.List(ctx, data.Query{OrderBy: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}
	return s.label(ctx, rows)
}

// Published returns every published article, newest first.
func (s *ArticleService) Published(ctx context.Context) ([]data.Article, error) {
	return s.articles.List(ctx, data.Query{Where: []data.Cond{published}, OrderBy: "created_at", Desc: true})
}

// Featured returns up to limit featured published articles in insertion order.
func (s *ArticleService) Featured(ctx context.Context, limit int) ([]data.Article, error) {
	rows, err := s.articles.List(ctx, data.Query{
		Where:   []data.Cond{published, data.Eq("is_featured", true)},
		OrderBy: "created_at",
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	return s.label(ctx, rows)
}

// Latest returns the newest published articles.
func (s *ArticleService) Latest(ctx context.Context, limit int) ([]data.Article, error) {
	rows, err := s.articles.List(ctx, data.Query{Where: []data.Cond{published}, OrderBy: "created_at", Desc: true, Limit: limit})
	if err != nil {
		return nil, err
	}
	return s.label(ctx, rows)
}

// View loads a published article by slug and counts the view.
func (s *ArticleService) View(ctx context.Context, slug string) (*data.Article, error) {
	a, err := first(ctx, s.articles, data.Query{Where: []data.Cond{data.Eq("slug", slug), published}})
	if err != nil {
		return nil, err
	}
	if err := s.articles.Increment(ctx, a.ID, "views", 1); err != nil {
		return nil, err
	}
	a.Views++
	labels, err := s.categories.Labels(ctx, data.KindArticle)
	if err != nil {
		return nil, err
	}
	a.CategoryName = Label(labels, a.CategoryID)
	return a, nil
}

// Get returns an article by id regardless of status.
func (s *ArticleService) Get(ctx context.Context, id string) (*data.Article, error) {
	return s.articles.Get(ctx, id)
}

// Create stores a new article. An empty slug is derived from the title.
func (s *ArticleService) Create(ctx context.Context, in ArticleInput, ownerID string) (*data.Article, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	article := &data.Article{
		Title:      in.Title,
		CategoryID: in.CategoryID,
		Content:    in.Content,
		ImageURL:   in.ImageURL,
		Status:     in.Status,
		IsFeatured: in.IsFeatured,
		OwnerID:    ownerID,
	}
	_, err := insertSlugged(in.Title, in.Slug, s.now(), func(slug string) error {
		article.Slug = slug
		return s.articles.Create(ctx, article)
	})
	if err != nil {
		return nil, err
	}
	s.notify.ContentChanged(ctx)
	return article, nil
}

// Update replaces the editable fields. An empty slug keeps the current one.
func (s *ArticleService) Update(ctx context.Context, id string, in ArticleInput) (*data.Article, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	fields := data.Fields{
		"title":       in.Title,
		"category_id": in.CategoryID,
		"content":     in.Content,
		"image_url":   in.ImageURL,
		"status":      in.Status,
		"is_featured": in.IsFeatured,
	}
	if strings.TrimSpace(in.Slug) != "" {
		slug, err := normalizeSlug(in.Slug)
		if err != nil {
			return nil, err
		}
		fields["slug"] = slug
	}
	a, err := updateSlugged(ctx, s.articles, id, fields)
	if err != nil {
		return nil, err
	}
	s.notify.ContentChanged(ctx)
	return a, nil
}

// Delete removes an article.
func (s *ArticleService) Delete(ctx context.Context, id string) error {
	if err := s.articles.Delete(ctx, id); err != nil {
		return err
	}
	s.notify.ContentChanged(ctx)
	return nil
}

func (s *ArticleService) check(ctx context.Context, in *ArticleInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Status = defaultStatus(in.Status)
	if err := validateStruct(in); err != nil {
		return err
	}
	_, err := s.categories.Resolve(ctx, data.KindArticle, in.CategoryID)
	return err
}

func (s *ArticleService) label(ctx context.Context, rows []data.Article) ([]data.Article, error) {
	labels, err := s.categories.Labels(ctx, data.KindArticle)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].CategoryName = Label(labels, rows[i].CategoryID)
	}
	return rows, nil
}
