//go:build integration

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"finance-hub/internal/assist"
	"finance-hub/internal/auth"
	"finance-hub/internal/cache"
	"finance-hub/internal/config"
	"finance-hub/internal/content"
	"finance-hub/internal/data"
	"finance-hub/internal/data/datatest"
	"finance-hub/internal/logger"
	"finance-hub/internal/metrics"
	"finance-hub/internal/service"
	"finance-hub/internal/session"
	"finance-hub/internal/view"
	"finance-hub/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubGenerator struct{ reply string }

func (g stubGenerator) Generate(context.Context, assist.GenerateRequest) (string, error) {
	return g.reply, nil
}

type stubScraper struct{}

func (stubScraper) Scrape(_ context.Context, pageURL string) (*assist.Page, error) {
	return &assist.Page{URL: pageURL, Markdown: "Текст страницы", Metadata: assist.Metadata{Title: "Заголовок"}}, nil
}

type testApp struct {
	router   http.Handler
	store    *data.Store
	services Services
}

// setupTest wires the full router over an in-memory database.
func setupTest(t *testing.T) *testApp {
	t.Helper()
	db := datatest.NewDB(t)
	store := data.NewStore(db)
	log := logger.Nop()
	ctx := context.Background()

	sessions, err := session.New(config.SessionConfig{}, "sqlite", db, false)
	require.NoError(t, err)

	enforcer, err := auth.NewMemoryEnforcer("../../auth_model.conf")
	require.NoError(t, err)
	auth.SeedDefaultPolicies(enforcer, log)

	pages, err := cache.New(config.CacheConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { pages.Close() })

	text := content.NewRenderer()
	sitemap := service.NewSitemapService(pages, "https://hub.example", log)
	categories := service.NewCategoryService(store.Categories, map[data.Kind]service.Dependents{
		data.KindOffer:   store.Offers,
		data.KindArticle: store.Articles,
		data.KindNews:    store.News,
		data.KindForum:   store.Topics,
	}, sitemap, log)
	articles := service.NewArticleService(store.Articles, categories, sitemap)
	news := service.NewNewsService(store.News, categories, sitemap)
	forum := service.NewForumService(store.Topics, store.Posts, store.Users, categories, text)
	newsletter := service.NewNewsletterService(store.Subscriptions)
	sitemap.Attach(articles, news, categories)

	m := metrics.New()
	s := Services{
		Auth: service.NewAuthService(store.Users, store.Resets, enforcer, service.LogMailer{Log: log},
			config.AuthConfig{BcryptCost: bcrypt.MinCost, LoginBurst: 50}, "https://hub.example", log),
		Categories: categories,
		Offers:     service.NewOfferService(store.Offers, categories),
		Articles:   articles,
		News:       news,
		Forum:      forum,
		Rates:      service.NewRateService(store.Rates, sitemap),
		Newsletter: newsletter,
		Dashboard:  service.NewDashboardService(store, forum, newsletter, sitemap),
		Assist: service.NewAssistService(
			stubGenerator{reply: "ЗАГОЛОВОК: Как выбрать вклад\n---\nТекст статьи"},
			stubScraper{}, assist.NewFeedReader(nil, ""), articles, news, nil, m, log),
		Sitemap: sitemap,
	}
	require.NoError(t, s.Auth.SeedAdmins(ctx))

	v, err := view.New(web.TemplateFS, text)
	require.NoError(t, err)

	router := NewRouter(s, Options{
		View:     v,
		Sessions: sessions,
		Enforcer: enforcer,
		Log:      log,
		Settings: view.Settings{SiteName: "Финансовый портал", BaseURL: "https://hub.example"},
		Metrics:  m,
		Static:   fstest.MapFS{"css/site.css": {Data: []byte("body{}")}},
	})
	return &testApp{router: router, store: store, services: s}
}

// client keeps the session cookie between requests.
type client struct {
	app    *testApp
	cookie *http.Cookie
}

func (c *client) do(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.app.router.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == "hub_session" {
			c.cookie = ck
		}
	}
	return rr
}

func (c *client) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return c.do(t, http.MethodGet, path, nil)
}

func (c *client) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	return c.do(t, http.MethodPost, path, form)
}

func (c *client) register(t *testing.T, email string) {
	t.Helper()
	rr := c.post(t, "/register", url.Values{"email": {email}, "password": {"secret1"}, "display_name": {"Иван"}})
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
}

func (app *testApp) admin(t *testing.T) *client {
	t.Helper()
	c := &client{app: app}
	c.register(t, "boss@example.com")
	require.NoError(t, app.services.Auth.GrantAdminByEmail(context.Background(), "boss@example.com"))
	return c
}

func TestRouter_PublicPages(t *testing.T) {
	app := setupTest(t)
	c := &client{app: app}

	for _, path := range []string{"/", "/offers", "/articles", "/news", "/forum", "/rates", "/search?q=credit", "/login", "/register", "/forgot-password", "/sitemap.html"} {
		t.Run(path, func(t *testing.T) {
			rr := c.get(t, path)
			assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Contains(t, rr.Body.String(), "Финансовый портал")
		})
	}
}

func TestRouter_Calculator(t *testing.T) {
	app := setupTest(t)
	c := &client{app: app}

	rr := c.get(t, "/?amount=120000&rate=0&months=12")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "10000.00")
}

func TestRouter_UnknownPathRedirectsHome(t *testing.T) {
	app := setupTest(t)
	rr := (&client{app: app}).get(t, "/no/such/page")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestRouter_MissingArticleIs404(t *testing.T) {
	app := setupTest(t)
	rr := (&client{app: app}).get(t, "/articles/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Страница не найдена")
}

func TestRouter_AdminAccess(t *testing.T) {
	app := setupTest(t)

	anon := &client{app: app}
	rr := anon.get(t, "/admin")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login?next=%2Fadmin", rr.Header().Get("Location"))

	member := &client{app: app}
	member.register(t, "ivan@example.com")
	rr = member.get(t, "/admin")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	boss := app.admin(t)
	rr = boss.get(t, "/admin")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Подписчики рассылки")
}

func TestRouter_LoginAndLogout(t *testing.T) {
	app := setupTest(t)
	c := &client{app: app}
	c.register(t, "ivan@example.com")
	c.post(t, "/logout", url.Values{})

	rr := c.post(t, "/login", url.Values{"email": {"ivan@example.com"}, "password": {"wrong-pass"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = c.post(t, "/login", url.Values{"email": {"ivan@example.com"}, "password": {"secret1"}, "next": {"/forum"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/forum", rr.Header().Get("Location"))

	rr = c.get(t, "/")
	assert.Contains(t, rr.Body.String(), "Выйти")
}

func TestRouter_RegisterValidation(t *testing.T) {
	app := setupTest(t)
	c := &client{app: app}

	rr := c.post(t, "/register", url.Values{"email": {"not-an-email"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	c.register(t, "ivan@example.com")
	other := &client{app: app}
	rr = other.post(t, "/register", url.Values{"email": {"ivan@example.com"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRouter_NewsletterDuplicate(t *testing.T) {
	app := setupTest(t)
	c := &client{app: app}

	rr := c.post(t, "/newsletter", url.Values{"email": {"reader@example.com"}, "next": {"/news"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/news", rr.Header().Get("Location"))
	assert.Contains(t, c.get(t, "/news").Body.String(), "Вы подписались")

	c.post(t, "/newsletter", url.Values{"email": {"Reader@example.com"}})
	assert.Contains(t, c.get(t, "/").Body.String(), "уже подписан")
}

func TestRouter_ForumModeration(t *testing.T) {
	app := setupTest(t)
	ctx := context.Background()
	cat, err := app.services.Categories.Create(ctx, service.CategoryInput{Name: "Кредиты", Type: data.KindForum}, "")
	require.NoError(t, err)

	anon := &client{app: app}
	rr := anon.post(t, "/forum/category/"+cat.ID+"/topics", url.Values{"title": {"Вопрос"}, "content": {"Текст"}})
	assert.Equal(t, http.StatusFound, rr.Code)

	member := &client{app: app}
	member.register(t, "ivan@example.com")
	rr = member.post(t, "/forum/category/"+cat.ID+"/topics", url.Values{"title": {"Вопрос про ипотеку"}, "content": {"Как быть?"}})
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
	topicPath := rr.Header().Get("Location")
	require.True(t, strings.HasPrefix(topicPath, "/forum/topic/"))
	assert.Contains(t, member.get(t, topicPath).Body.String(), pendingNotice)

	// Pending topics are hidden from other visitors.
	rr = (&client{app: app}).get(t, topicPath)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	boss := app.admin(t)
	id := strings.TrimPrefix(topicPath, "/forum/topic/")
	rr = boss.post(t, "/admin/forum/topics/"+id+"/approve", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	rr = (&client{app: app}).get(t, topicPath)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Вопрос про ипотеку")
}

func TestRouter_AdminArticleLifecycle(t *testing.T) {
	app := setupTest(t)
	boss := app.admin(t)
	cat, err := app.services.Categories.Create(context.Background(), service.CategoryInput{Name: "Вклады", Type: data.KindArticle}, "")
	require.NoError(t, err)

	rr := boss.post(t, "/admin/articles", url.Values{"title": {""}, "category_id": {cat.ID}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = boss.post(t, "/admin/articles", url.Values{
		"title":       {"Как открыть вклад"},
		"slug":        {"kak-otkryt-vklad"},
		"category_id": {cat.ID},
		"content":     {"## Шаги\nОткройте вклад онлайн."},
		"status":      {"published"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())

	rr = (&client{app: app}).get(t, "/articles/kak-otkryt-vklad")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Как открыть вклад")

	rr = (&client{app: app}).get(t, "/sitemap.xml")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "https://hub.example/articles/kak-otkryt-vklad")
}

func TestRouter_AssistGenerate(t *testing.T) {
	app := setupTest(t)
	boss := app.admin(t)

	rr := boss.post(t, "/admin/ai/generate", url.Values{"topic": {"вклады"}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Как выбрать вклад")

	rr = boss.post(t, "/admin/ai/generate", url.Values{"topic": {" "}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRouter_CrawlerFiles(t *testing.T) {
	app := setupTest(t)
	c := &client{app: app}

	rr := c.get(t, "/robots.txt")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Sitemap: https://hub.example/sitemap.xml")
	assert.Nil(t, c.cookie)

	rr = c.get(t, "/sitemap.xml")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/xml; charset=utf-8", rr.Header().Get("Content-Type"))

	rr = c.get(t, "/static/css/site.css")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = c.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "financehub_http_requests_total")
}
