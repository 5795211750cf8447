package service

import (
	"context"
	"fmt"
	"time"

	"finance-hub/internal/data"
)

// demoOwner is recorded as the creator of seeded rows.
const demoOwner = "system"

// Stats are the back office overview counters.
type Stats struct {
	Offers      int
	Articles    int
	News        int
	Topics      int
	Categories  int
	Pending     int
	Subscribers int
}

// DashboardService computes the overview counters and seeds demo content.
type DashboardService struct {
	store      *data.Store
	forum      *ForumService
	newsletter *NewsletterService
	notify     ChangeNotifier
	now        func() time.Time
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(store *data.Store, forum *ForumService, newsletter *NewsletterService, notify ChangeNotifier) *DashboardService {
	return &DashboardService{
		store:      store,
		forum:      forum,
		newsletter: newsletter,
		notify:     notifierOrNoop(notify),
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Stats counts the main entities.
func (s *DashboardService) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	var err error
	all := data.Query{}
	if st.Offers, err = s.store.Offers.Count(ctx, all); err != nil {
		return nil, err
	}
	if st.Articles, err = s.store.Articles.Count(ctx, all); err != nil {
		return nil, err
	}
	if st.News, err = s.store.News.Count(ctx, all); err != nil {
		return nil, err
	}
	if st.Topics, err = s.store.Topics.Count(ctx, all); err != nil {
		return nil, err
	}
	if st.Categories, err = s.store.Categories.Count(ctx, all); err != nil {
		return nil, err
	}
	if st.Pending, err = s.forum.PendingCount(ctx); err != nil {
		return nil, err
	}
	if st.Subscribers, err = s.newsletter.Count(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

func demo(id string) data.Meta { return data.Meta{ID: id} }

// SeedDemo upserts a fixed set of categories, offers, articles and rates.
// Running it again overwrites the same rows.
func (s *DashboardService) SeedDemo(ctx context.Context) error {
	categories := []data.Category{
		{Meta: demo("cat_1"), Name: "Кредитные карты", Slug: "credit-cards", Type: data.KindOffer, Description: "Лучшие кредитные карты с кэшбэком"},
		{Meta: demo("cat_2"), Name: "Потребительские кредиты", Slug: "loans", Type: data.KindOffer, Description: "Кредиты на любые цели"},
		{Meta: demo("cat_3"), Name: "Личные финансы", Slug: "personal-finance", Type: data.KindArticle, Description: "Советы по экономии и накоплению"},
		{Meta: demo("cat_4"), Name: "Инвестиции", Slug: "investments", Type: data.KindArticle, Description: "Куда вложить деньги"},
		{Meta: demo("cat_5"), Name: "Общий раздел", Slug: "general", Type: data.KindForum, Description: "Обсуждение любых финансовых тем"},
	}
	for i := range categories {
		categories[i].OwnerID = demoOwner
		if err := s.store.Categories.Upsert(ctx, &categories[i]); err != nil {
			return fmt.Errorf("seed category %s: %w", categories[i].ID, err)
		}
	}

	offers := []data.Offer{
		{
			Meta:        demo("off_1"),
			Title:       "Тинькофф Платинум",
			CategoryID:  "cat_1",
			Description: "Кредитный лимит до 1 000 000 ₽. Беспроцентный период до 55 дней. Кэшбэк до 30% у партнеров.",
			ExternalURL: "https://www.tinkoff.ru/cards/credit-cards/platinum/",
			Rating:      4.9,
			IsFeatured:  true,
		},
		{
			Meta:        demo("off_2"),
			Title:       "Альфа-Карта 365 дней",
			CategoryID:  "cat_1",
			Description: "Год без процентов на покупки в первые 30 дней. Бесплатное обслуживание навсегда.",
			ExternalURL: "https://alfabank.ru/get-card/credit/lp/365days/",
			Rating:      4.8,
			IsFeatured:  true,
		},
	}
	for i := range offers {
		offers[i].OwnerID = demoOwner
		if err := s.store.Offers.Upsert(ctx, &offers[i]); err != nil {
			return fmt.Errorf("seed offer %s: %w", offers[i].ID, err)
		}
	}

	articles := []data.Article{
		{
			Meta:       demo("art_1"),
			Title:      "Как накопить на первый взнос по ипотеке за 2 года",
			Slug:       "how-to-save-for-mortgage",
			CategoryID: "cat_3",
			Content:    "Накопление на первоначальный взнос один из самых сложных этапов покупки жилья. Разберем стратегию 50/30/20 и покажем, как автоматизация накоплений поможет достичь цели быстрее.\n\n## Шаг 1: Анализ расходов\nИспользуйте банковские приложения для категоризации трат.\n## Шаг 2: Вклад с высокой ставкой\n## Шаг 3: Минимум импульсивных покупок",
			IsFeatured: true,
		},
		{
			Meta:       demo("art_2"),
			Title:      "Топ-5 инвестиционных инструментов",
			Slug:       "top-5-investments",
			CategoryID: "cat_4",
			Content:    "Мир финансов меняется стремительно.\n\n1. ОФЗ-ПК: защита от инфляции.\n2. Золотые слитки и монеты.\n3. Акции технологического сектора.\n4. Дивидендные аристократы.\n5. Краудлендинговые платформы.",
			IsFeatured: true,
		},
	}
	for i := range articles {
		articles[i].Status = data.StatusPublished
		articles[i].OwnerID = demoOwner
		if err := s.store.Articles.Upsert(ctx, &articles[i]); err != nil {
			return fmt.Errorf("seed article %s: %w", articles[i].ID, err)
		}
	}

	now := s.now()
	rates := []data.CurrencyRate{
		{Meta: demo("rate_1"), Code: "USD", Name: "Доллар США", Rate: 91.45},
		{Meta: demo("rate_2"), Code: "EUR", Name: "Евро", Rate: 99.12},
		{Meta: demo("rate_3"), Code: "CNY", Name: "Юань", Rate: 12.62},
	}
	for i := range rates {
		rates[i].UpdatedAt = now
		rates[i].OwnerID = demoOwner
		if err := s.store.Rates.Upsert(ctx, &rates[i]); err != nil {
			return fmt.Errorf("seed rate %s: %w", rates[i].ID, err)
		}
	}

	s.notify.ContentChanged(ctx)
	return nil
}
