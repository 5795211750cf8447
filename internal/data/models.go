package data

import (
	"time"
)

// Meta holds the identity and insert timestamp every stored row carries.
// Both are assigned by the store on Create when left empty.
type Meta struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

// Entity is implemented by every row type through its embedded Meta.
type Entity interface {
	RowMeta() *Meta
}

// RowMeta returns the row's Meta so the store can assign identity.
func (m *Meta) RowMeta() *Meta { return m }

// Kind names the entity family a category may parent.
type Kind string

const (
	KindOffer   Kind = "offer"
	KindArticle Kind = "article"
	KindForum   Kind = "forum"
	KindNews    Kind = "news"
)

// Kinds lists every valid category partition.
var Kinds = []Kind{KindOffer, KindArticle, KindForum, KindNews}

// Valid reports whether k is a known partition.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Publication status of articles and news.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Category groups content of exactly one Kind.
type Category struct {
	Meta
	Name        string `db:"name"`
	Slug        string `db:"slug"`
	Type        Kind   `db:"type"`
	Description string `db:"description"`
	OwnerID     string `db:"user_id"`
}

// Offer is a third-party financial product with an outbound affiliate link.
type Offer struct {
	Meta
	Title       string  `db:"title"`
	Description string  `db:"description"`
	ImageURL    string  `db:"image_url"`
	ExternalURL string  `db:"external_url"`
	CategoryID  string  `db:"category_id"`
	Rating      float64 `db:"rating"`
	IsFeatured  bool    `db:"is_featured"`
	OwnerID     string  `db:"user_id"`

	CategoryName string `db:"-"`
}

// Article is long-form content addressed by its slug.
type Article struct {
	Meta
	Title      string `db:"title"`
	Slug       string `db:"slug"`
	CategoryID string `db:"category_id"`
	Content    string `db:"content"`
	ImageURL   string `db:"image_url"`
	Status     string `db:"status"`
	IsFeatured bool   `db:"is_featured"`
	Views      int64  `db:"views"`
	OwnerID    string `db:"user_id"`

	CategoryName string `db:"-"`
}

// News is a short item, optionally imported from an external source.
type News struct {
	Meta
	Title           string `db:"title"`
	Slug            string `db:"slug"`
	CategoryID      string `db:"category_id"`
	Content         string `db:"content"`
	Excerpt         string `db:"excerpt"`
	ImageURL        string `db:"image_url"`
	SourceURL       string `db:"source_url"`
	Status          string `db:"status"`
	IsFeatured      bool   `db:"is_featured"`
	Views           int64  `db:"views"`
	MetaTitle       string `db:"meta_title"`
	MetaDescription string `db:"meta_description"`
	OwnerID         string `db:"user_id"`

	CategoryName string `db:"-"`
}

// ForumTopic is the root of a discussion thread.
type ForumTopic struct {
	Meta
	Title      string     `db:"title"`
	CategoryID string     `db:"category_id"`
	AuthorID   string     `db:"author_id"`
	IsApproved bool       `db:"is_approved"`
	IsPinned   bool       `db:"is_pinned"`
	IsLocked   bool       `db:"is_locked"`
	Views      int64      `db:"views"`
	LastPostAt *time.Time `db:"last_post_at"`
	OwnerID    string     `db:"user_id"`

	CategoryName string `db:"-"`
}

// ForumPost is a message inside a topic.
type ForumPost struct {
	Meta
	TopicID    string `db:"topic_id"`
	Content    string `db:"content"`
	AuthorID   string `db:"author_id"`
	IsApproved bool   `db:"is_approved"`
	OwnerID    string `db:"user_id"`

	AuthorName string `db:"-"`
	IsOriginal bool   `db:"-"`
}

// CurrencyRate is one exchange rate row. Codes are not unique.
type CurrencyRate struct {
	Meta
	Code      string    `db:"code"`
	Name      string    `db:"name"`
	Rate      float64   `db:"rate"`
	UpdatedAt time.Time `db:"updated_at"`
	OwnerID   string    `db:"user_id"`
}

// NewsletterSubscription is a mailing list entry. Email is unique.
type NewsletterSubscription struct {
	Meta
	Email    string `db:"email"`
	IsActive bool   `db:"is_active"`
	OwnerID  string `db:"user_id"`
}

// User is a local account.
type User struct {
	Meta
	Email        string `db:"email"`
	DisplayName  string `db:"display_name"`
	PasswordHash string `db:"password_hash"`
	// AdminSeeded is set once auth.seed_admins has granted the account admin.
	AdminSeeded  bool   `db:"admin_seeded"`
}

// PasswordReset is a single-use reset token; only its hash is stored.
type PasswordReset struct {
	Meta
	UserID    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
}
