package store

import "time"

type User struct {
	ID             int64     `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	PasswordHash   string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt      time.Time `json:"created_at"`
}

type Chat struct {
	ID        string    `json:"id"` // Using UUID for external ID
	UserID    int64     `json:"user_id"`
	Title     *string   `json:"title"` // Nullable
	CreatedAt time.Time `json:"created_at"`
}

// Message is one side of a chat exchange. Assistant messages carry the IDs of
// the articles that grounded the reply; the references are weak and may point
// at articles removed later.
type Message struct {
	ID               string    `json:"id"` // Using UUID for external ID
	ChatID           string    `json:"chat_id"`
	Role             string    `json:"role"` // "user" or "assistant"
	Content          string    `json:"content"`
	Provider         string    `json:"provider,omitempty"` // backend that produced/served the turn
	ArticleIDs       []int64   `json:"article_ids,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	NegativeFeedback bool      `json:"negative_feedback"`
}

// Article is one ingested, enriched news item. Metadata fields are immutable
// after persistence. Summary, Sentiment, and Embedding are each set once by
// their producing pipeline stage; a nil Embedding means the embedding stage
// failed and the article is excluded from retrieval.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
	Summary     string    `json:"summary"`
	Sentiment   string    `json:"sentiment"`
	Embedding   []float32 `json:"-"` // Stored as JSON text in the DB, not exposed over the API
}
