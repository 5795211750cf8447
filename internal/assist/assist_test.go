//go:build unit

package assist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finance-hub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerator(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"message":{"role":"assistant","content":"  ЗАГОЛОВОК: Тест\n---\nТекст  "},"done":true}`))
	}))
	defer srv.Close()

	g := NewOllamaGenerator(config.AIConfig{BaseURL: srv.URL + "/", Model: "llama3.1"})
	text, err := g.Generate(context.Background(), GenerateRequest{Prompt: "Напиши статью", MaxTokens: 3000})
	require.NoError(t, err)

	assert.Equal(t, "ЗАГОЛОВОК: Тест\n---\nТекст", text)
	assert.Equal(t, "llama3.1", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.EqualValues(t, 3000, got.Options["num_predict"])
}

func TestOllamaGenerator_Errors(t *testing.T) {
	t.Run("non 200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewOllamaGenerator(config.AIConfig{BaseURL: srv.URL}).Generate(context.Background(), GenerateRequest{Prompt: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("empty completion", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message":{"content":"   "},"done":true}`))
		}))
		defer srv.Close()

		_, err := NewOllamaGenerator(config.AIConfig{BaseURL: srv.URL}).Generate(context.Background(), GenerateRequest{Prompt: "x"})
		assert.True(t, errors.Is(err, ErrEmptyCompletion))
	})
}

const articleHTML = `<!doctype html>
<html><head>
<title>Ставка ЦБ</title>
<meta name="description" content="Банк России сохранил ключевую ставку">
</head><body>
<nav><a href="/news/lenta/1">Первая</a> <a href="https://other.example/x#top">Внешняя</a> <a href="mailto:a@b.com">Почта</a></nav>
<article>
<h1>Ставка ЦБ</h1>
<p>Совет директоров Банка России принял решение сохранить ключевую ставку без изменений, сообщает регулятор в пятничном пресс-релизе. Аналитики ожидали именно такого решения.</p>
<h3>Что дальше</h3>
<p>Следующее заседание совета директоров, на котором будет рассматриваться вопрос об уровне ключевой ставки, запланировано на конец следующего квартала текущего года.</p>
</article>
<a href="/news/lenta/1">Повтор</a>
</body></html>`

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/news/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articleHTML))
	})
	mux.HandleFunc("/private/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("disallowed path was fetched")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPScraper_Scrape(t *testing.T) {
	srv := newSiteServer(t)
	s := NewHTTPScraper(config.ScraperConfig{})

	page, err := s.Scrape(context.Background(), srv.URL+"/news/daytheme/42")
	require.NoError(t, err)

	assert.Equal(t, "Ставка ЦБ", page.Metadata.Title)
	assert.Equal(t, "Банк России сохранил ключевую ставку", page.Metadata.Description)
	assert.Contains(t, page.Markdown, "сохранить ключевую ставку без изменений")

	urls := make([]string, 0, len(page.Links))
	for _, l := range page.Links {
		urls = append(urls, l.URL)
	}
	assert.Contains(t, urls, srv.URL+"/news/lenta/1")
	assert.Contains(t, urls, "https://other.example/x")
	for _, u := range urls {
		assert.False(t, strings.HasPrefix(u, "mailto:"))
	}
	assert.Len(t, urls, 2, "duplicates are dropped")
}

func TestHTTPScraper_RobotsDisallow(t *testing.T) {
	srv := newSiteServer(t)
	s := NewHTTPScraper(config.ScraperConfig{})

	_, err := s.Scrape(context.Background(), srv.URL+"/private/page")
	assert.ErrorIs(t, err, ErrDisallowed)
}

func TestHTTPScraper_InvalidURL(t *testing.T) {
	s := NewHTTPScraper(config.ScraperConfig{})
	_, err := s.Scrape(context.Background(), "ftp://example.com/file")
	assert.Error(t, err)
}

func TestSelectionToMarkdown(t *testing.T) {
	md := htmlToMarkdown(`<div><h2>Итоги</h2><p>Первый <b>абзац</b></p><ul><li><p>пункт</p></li></ul><h4>Мелко</h4></div>`)
	assert.Equal(t, "## Итоги\n\nПервый абзац\n\n- пункт\n\n### Мелко", md)
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Лента</title>
<item><title> Курс доллара </title><link>https://example.com/a</link><description>Описание</description><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
<item><title>Вклады</title><link>https://example.com/b</link></item>
<item><title>Ипотека</title><link>https://example.com/c</link></item>
</channel></rss>`

func TestFeedReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	items, err := NewFeedReader(nil, "test-agent").Read(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Курс доллара", items[0].Title)
	assert.Equal(t, "https://example.com/a", items[0].Link)
	require.NotNil(t, items[0].Published)
	assert.Equal(t, 2006, items[0].Published.Year())
	assert.Nil(t, items[1].Published)
}
