//go:build unit

package service

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSlug(t *testing.T) {
	at := time.UnixMilli(1700000012345)

	tests := []struct {
		name  string
		title string
		at    time.Time
		want  string
	}{
		{"cyrillic", "Как накопить на ипотеку!", at, "как-накопить-на-ипотеку-2345"},
		{"punctuation and spaces", "  Топ-5:  вкладов  --  2025 ", at, "топ-5-вкладов-2025-2345"},
		{"zero padded suffix", "Rates", time.UnixMilli(1700000000007), "rates-0007"},
		{"nothing left", "!!!", at, "2345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveSlug(tt.title, tt.at))
			assert.Equal(t, tt.want, DeriveSlug(tt.title, tt.at))
		})
	}
}

func TestDeriveSlug_Truncates(t *testing.T) {
	slug := DeriveSlug(strings.Repeat("слово ", 30), time.UnixMilli(1234))
	base := strings.TrimSuffix(slug, "-1234")
	assert.LessOrEqual(t, utf8.RuneCountInString(base), MaxSlugBase)
	assert.False(t, strings.HasSuffix(base, "-"))
}

func TestNormalizeSlug(t *testing.T) {
	got, err := normalizeSlug(" Kak-Vybrat ")
	require.NoError(t, err)
	assert.Equal(t, "kak-vybrat", got)

	for _, bad := range []string{"with space", "-lead", "a--b", "знак!"} {
		_, err := normalizeSlug(bad)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, bad)
	}
}

func TestAnnuity(t *testing.T) {
	p, err := Annuity(CalculatorInput{Amount: 100000, Rate: 12, Months: 12})
	require.NoError(t, err)
	assert.Equal(t, 8884.88, p.Monthly)
	assert.Equal(t, 106618.55, p.Total)
	assert.Equal(t, 6618.55, p.Overpayment)

	p, err = Annuity(CalculatorInput{Amount: 1200, Rate: 0, Months: 12})
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Monthly)
	assert.Equal(t, 0.0, p.Overpayment)

	p, err = Annuity(CalculatorInput{Amount: 1200, Rate: 1e-14, Months: 12})
	require.NoError(t, err)
	assert.False(t, math.IsInf(p.Monthly, 0) || math.IsNaN(p.Monthly))
	assert.Equal(t, 100.0, p.Monthly)
	assert.Equal(t, 1200.0, p.Total)

	_, err = Annuity(CalculatorInput{Amount: 1000, Rate: 10, Months: 0})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "months")
}

func TestMatchesText(t *testing.T) {
	assert.True(t, matchesText("КАРТА", "Кредитная карта X"))
	assert.True(t, matchesText("", "anything"))
	assert.False(t, matchesText("вклад", "Кредитная карта", "описание"))
}

func TestFilterText_ConcurrentCallers(t *testing.T) {
	rows := []string{"Кредитная КАРТА", "Вклад", "карта с кэшбэком", "Ипотека"}
	text := func(s *string) []string { return []string{*s} }

	var wg sync.WaitGroup
	results := make([][]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = filterText(rows, "Карта", text)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, []string{"Кредитная КАРТА", "карта с кэшбэком"}, got)
	}
}

func TestParseArticleDraft(t *testing.T) {
	d := ParseArticleDraft("ЗАГОЛОВОК: Вклады 2025\n---\nТело", "тема")
	assert.Equal(t, "Вклады 2025", d.Title)
	assert.Equal(t, "Тело", d.Content)

	d = ParseArticleDraft("Просто текст", "тема")
	assert.Equal(t, "тема", d.Title)
	assert.Equal(t, "Просто текст", d.Content)
}

func TestParseRewrite(t *testing.T) {
	d := ParseRewrite("Заголовок: **Новый курс**\n\nТекст новости")
	assert.Equal(t, "Новый курс", d.Title)
	assert.Equal(t, "Текст новости", d.Content)

	d = ParseRewrite("### Только заголовок")
	assert.Equal(t, "Только заголовок", d.Title)
	assert.Empty(t, d.Content)
}

func TestValidationError_Message(t *testing.T) {
	err := validateStruct(&SubscribeInput{Email: "nope"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Введите корректный email", verr.Fields["email"])
	assert.Equal(t, "validation failed: email: Введите корректный email", verr.Error())
}
