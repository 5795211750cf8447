package service

import (
	"context"
	"fmt"
	"strings"

	"finance-hub/internal/assist"
	"finance-hub/internal/content"
	"finance-hub/internal/data"
	"finance-hub/internal/logger"
)

// Assist limits.
const (
	AssistMaxTokens    = 3000
	ListingItems       = 5
	RewriteInputRunes  = 4000
	ScrapeContentRunes = 5000
	untitled           = "Без названия"
	untitledNews       = "Новость"
)

const articleSystemPrompt = `Ты - профессиональный финансовый копирайтер с 10-летним опытом.
Твоя задача - писать SEO-оптимизированные статьи для финансового портала на русском языке.
Статьи должны быть:
- Информативными и полезными для читателя
- Структурированными с подзаголовками (##)
- Содержать практические советы
- Длиной 800-1500 слов

Формат ответа:
ЗАГОЛОВОК: [привлекательный заголовок]
---
[Текст статьи с подзаголовками и параграфами]`

const articleUserPrompt = `Напиши подробную статью на тему: "%s"

Статья должна содержать:
1. Привлекательное введение
2. 3-5 основных разделов с подзаголовками
3. Практические советы или рекомендации
4. Заключение с призывом к действию`

const rewriteSystemPrompt = `Ты - профессиональный рерайтер. Перепиши текст так, чтобы сохранить весь смысл и факты оригинала, сделать его уникальным и сохранить профессиональный стиль. Пиши на русском языке.

Не добавляй комментарии, просто выдай переписанный текст.`

const newsRewritePrompt = "Перепиши следующую новость для финансового портала. Сделай текст уникальным, сохрани факты. Отвечай на русском языке:\n\n%s"

// Draft is generated content returned to the admin form before saving.
type Draft struct {
	Title   string
	Content string
}

// ParsedItem is a news candidate found by the scraper or a feed.
type ParsedItem struct {
	Title       string
	URL         string
	Description string
	Content     string
}

// AssistRecorder observes assist calls; metrics.Metrics implements it.
type AssistRecorder interface {
	ObserveAssist(op string, err error)
}

// AssistService drafts and imports content with the AI model and the
// scraper. It is only used from the back office.
type AssistService struct {
	generator    assist.Generator
	scraper      assist.Scraper
	feeds        *assist.FeedReader
	articles     *ArticleService
	news         *NewsService
	linkPatterns []string
	recorder     AssistRecorder
	log          logger.Logger
}

// NewAssistService creates an AssistService. recorder may be nil.
func NewAssistService(generator assist.Generator, scraper assist.Scraper, feeds *assist.FeedReader, articles *ArticleService, news *NewsService, linkPatterns []string, recorder AssistRecorder, log logger.Logger) *AssistService {
	if len(linkPatterns) == 0 {
		linkPatterns = []string{"/news/daytheme/", "/news/lenta/"}
	}
	return &AssistService{
		generator:    generator,
		scraper:      scraper,
		feeds:        feeds,
		articles:     articles,
		news:         news,
		linkPatterns: linkPatterns,
		recorder:     recorder,
		log:          log,
	}
}

// unavailable records the outcome of op and wraps any failure.
func (s *AssistService) unavailable(op string, err error) error {
	if s.recorder != nil {
		s.recorder.ObserveAssist(op, err)
	}
	if err == nil {
		return nil
	}
	s.log.Error(err, "assist "+op+" failed")
	return fmt.Errorf("%w: %s: %v", ErrAssistUnavailable, op, err)
}

// GenerateArticle asks the model for an article about topic.
func (s *AssistService) GenerateArticle(ctx context.Context, topic string) (*Draft, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, Invalid("topic", "Введите тему статьи")
	}
	text, err := s.generator.Generate(ctx, assist.GenerateRequest{
		Messages: []assist.Message{
			{Role: "system", Content: articleSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(articleUserPrompt, topic)},
		},
		MaxTokens: AssistMaxTokens,
	})
	if err := s.unavailable("generate", err); err != nil {
		return nil, err
	}
	return ParseArticleDraft(text, topic), nil
}

// ParseArticleDraft splits a model answer into title and body. The title
// comes from the "ЗАГОЛОВОК:" line and the body follows the first "---".
func ParseArticleDraft(text, fallbackTitle string) *Draft {
	d := &Draft{Title: fallbackTitle, Content: text}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "ЗАГОЛОВОК:") {
			d.Title = strings.TrimSpace(strings.TrimPrefix(line, "ЗАГОЛОВОК:"))
			break
		}
	}
	if i := strings.Index(text, "---"); i > -1 {
		d.Content = strings.TrimSpace(text[i+3:])
	}
	return d
}

// Rewrite returns a reworded version of text.
func (s *AssistService) Rewrite(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", Invalid("text", "Введите текст для рерайта")
	}
	out, err := s.generator.Generate(ctx, assist.GenerateRequest{
		Messages: []assist.Message{
			{Role: "system", Content: rewriteSystemPrompt},
			{Role: "user", Content: "Перепиши следующий текст, сделав его уникальным:\n\n" + text},
		},
		MaxTokens: AssistMaxTokens,
	})
	if err := s.unavailable("rewrite", err); err != nil {
		return "", err
	}
	return out, nil
}

// ScrapePage turns a single page into a news candidate.
func (s *AssistService) ScrapePage(ctx context.Context, pageURL string) (*ParsedItem, error) {
	page, err := s.scraper.Scrape(ctx, pageURL)
	if err := s.unavailable("scrape", err); err != nil {
		return nil, err
	}
	item := &ParsedItem{
		Title:       page.Metadata.Title,
		URL:         pageURL,
		Description: page.Metadata.Description,
		Content:     content.Truncate(page.Markdown, ScrapeContentRunes),
	}
	if item.Title == "" {
		item.Title = untitled
	}
	if item.Description == "" {
		item.Description = content.Truncate(page.Markdown, ExcerptRunes)
	}
	return item, nil
}

// ScrapeListing collects up to ListingItems news links from a listing page
// whose URLs contain one of the configured patterns.
func (s *AssistService) ScrapeListing(ctx context.Context, listingURL string) ([]ParsedItem, error) {
	page, err := s.scraper.Scrape(ctx, listingURL)
	if err := s.unavailable("listing", err); err != nil {
		return nil, err
	}
	items := make([]ParsedItem, 0, ListingItems)
	for _, l := range page.Links {
		if len(items) == ListingItems {
			break
		}
		if !s.matchesPattern(l.URL) {
			continue
		}
		title := strings.TrimSpace(l.Text)
		if title == "" {
			title = untitledNews
		}
		items = append(items, ParsedItem{Title: title, URL: l.URL})
	}
	return items, nil
}

func (s *AssistService) matchesPattern(u string) bool {
	for _, p := range s.linkPatterns {
		if strings.Contains(u, p) {
			return true
		}
	}
	return false
}

// ImportFeed reads news candidates from an RSS or Atom feed.
func (s *AssistService) ImportFeed(ctx context.Context, feedURL string) ([]ParsedItem, error) {
	entries, err := s.feeds.Read(ctx, feedURL, ListingItems)
	if err := s.unavailable("feed", err); err != nil {
		return nil, err
	}
	items := make([]ParsedItem, 0, len(entries))
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = untitledNews
		}
		items = append(items, ParsedItem{
			Title:       title,
			URL:         e.Link,
			Description: content.Truncate(e.Description, ExcerptRunes),
		})
	}
	return items, nil
}

// RewriteItem scrapes a news page and has the model rewrite it. The first
// line of the answer becomes the title.
func (s *AssistService) RewriteItem(ctx context.Context, pageURL, fallbackTitle string) (*Draft, error) {
	page, err := s.scraper.Scrape(ctx, pageURL)
	if err := s.unavailable("scrape", err); err != nil {
		return nil, err
	}
	text, err := s.generator.Generate(ctx, assist.GenerateRequest{
		Prompt:    fmt.Sprintf(newsRewritePrompt, content.Truncate(page.Markdown, RewriteInputRunes)),
		MaxTokens: AssistMaxTokens,
	})
	if err := s.unavailable("rewrite", err); err != nil {
		return nil, err
	}
	d := ParseRewrite(text)
	if d.Title == "" {
		d.Title = fallbackTitle
	}
	return d, nil
}

// ParseRewrite splits a rewritten news item into its first line (cleaned of
// markdown heading and emphasis marks) and the remaining body.
func ParseRewrite(text string) *Draft {
	lines := strings.Split(text, "\n")
	title := strings.TrimPrefix(strings.TrimSpace(lines[0]), "Заголовок:")
	title = strings.TrimLeft(strings.TrimSpace(title), "#")
	title = strings.ReplaceAll(title, "*", "")
	return &Draft{
		Title:   strings.TrimSpace(title),
		Content: strings.TrimSpace(strings.Join(lines[1:], "\n")),
	}
}

// PublishArticle saves a reviewed draft as an article with a derived slug.
func (s *AssistService) PublishArticle(ctx context.Context, d Draft, categoryID, ownerID string) error {
	_, err := s.articles.Create(ctx, ArticleInput{
		Title:      d.Title,
		CategoryID: categoryID,
		Content:    d.Content,
		Status:     data.StatusPublished,
	}, ownerID)
	return err
}

// PublishNews saves a reviewed item as a news entry with a derived slug.
func (s *AssistService) PublishNews(ctx context.Context, d Draft, sourceURL, categoryID, ownerID string) error {
	_, err := s.news.Create(ctx, NewsInput{
		Title:      d.Title,
		CategoryID: categoryID,
		Content:    d.Content,
		SourceURL:  sourceURL,
		Status:     data.StatusPublished,
	}, ownerID)
	return err
}
