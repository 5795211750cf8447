package data

import "github.com/jmoiron/sqlx"

// Store bundles one Table per entity over a shared connection pool.
type Store struct {
	DB            *sqlx.DB
	Categories    *Table[Category]
	Offers        *Table[Offer]
	Articles      *Table[Article]
	News          *Table[News]
	Topics        *Table[ForumTopic]
	Posts         *Table[ForumPost]
	Rates         *Table[CurrencyRate]
	Subscriptions *Table[NewsletterSubscription]
	Users         *Table[User]
	Resets        *Table[PasswordReset]
}

// NewStore wires every table against db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		DB: db,
		Categories: NewTable[Category](db, "categories",
			"name", "slug", "type", "description", "user_id"),
		Offers: NewTable[Offer](db, "offers",
			"title", "description", "image_url", "external_url", "category_id",
			"rating", "is_featured", "user_id"),
		Articles: NewTable[Article](db, "articles",
			"title", "slug", "category_id", "content", "image_url", "status",
			"is_featured", "views", "user_id"),
		News: NewTable[News](db, "news",
			"title", "slug", "category_id", "content", "excerpt", "image_url",
			"source_url", "status", "is_featured", "views", "meta_title",
			"meta_description", "user_id"),
		Topics: NewTable[ForumTopic](db, "forum_topics",
			"title", "category_id", "author_id", "is_approved", "is_pinned",
			"is_locked", "views", "last_post_at", "user_id"),
		Posts: NewTable[ForumPost](db, "forum_posts",
			"topic_id", "content", "author_id", "is_approved", "user_id"),
		Rates: NewTable[CurrencyRate](db, "currency_rates",
			"code", "name", "rate", "updated_at", "user_id"),
		Subscriptions: NewTable[NewsletterSubscription](db, "newsletter_subscriptions",
			"email", "is_active", "user_id"),
		Users: NewTable[User](db, "users",
			"email", "display_name", "password_hash", "admin_seeded"),
		Resets: NewTable[PasswordReset](db, "password_resets",
			"user_id", "token_hash", "expires_at", "used"),
	}
}
