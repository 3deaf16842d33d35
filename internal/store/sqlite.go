package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dataSourceName string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	store := &SQLiteStore{db: db, logger: logger.With("component", "store")}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        external_user_id TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        title TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        chat_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        provider TEXT,
        article_refs TEXT, -- JSON array of article IDs that grounded an assistant reply
        timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
        negative_feedback BOOLEAN DEFAULT FALSE,
        FOREIGN KEY (chat_id) REFERENCES chats (id)
    );

    CREATE TABLE IF NOT EXISTS articles (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        author TEXT,
        source TEXT,
        url TEXT UNIQUE NOT NULL,
        category TEXT NOT NULL,
        published_at DATETIME,
        fetched_at DATETIME,
        summary TEXT,
        sentiment TEXT,
        embedding_json TEXT -- JSON array of floats; NULL when the embedding stage failed
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) GetUserByExternalID(externalUserID string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, external_user_id, password_hash, created_at FROM users WHERE external_user_id = ?", externalUserID).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(externalUserID, passwordHash string) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (external_user_id, password_hash) VALUES (?, ?)", externalUserID, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getUserByID(id)
}

func (s *SQLiteStore) getUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, external_user_id, password_hash, created_at FROM users WHERE id = ?", id).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Chat methods

func (s *SQLiteStore) CreateChat(userID int64, title *string) (*Chat, error) {
	chatID := uuid.NewString()
	stmt, err := s.db.Prepare("INSERT INTO chats (id, user_id, title, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare chat insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	_, err = stmt.Exec(chatID, userID, title, now)
	if err != nil {
		return nil, fmt.Errorf("failed to execute chat insert: %w", err)
	}
	return &Chat{ID: chatID, UserID: userID, Title: title, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetChatByID(chatID string, userID int64) (*Chat, error) {
	var chat Chat
	var title sql.NullString
	err := s.db.QueryRow("SELECT id, user_id, title, created_at FROM chats WHERE id = ? AND user_id = ?", chatID, userID).Scan(&chat.ID, &chat.UserID, &title, &chat.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if title.Valid {
		chat.Title = &title.String
	}
	return &chat, nil
}

func (s *SQLiteStore) GetChatsByUserID(userID int64) ([]Chat, error) {
	rows, err := s.db.Query("SELECT id, user_id, title, created_at FROM chats WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		var title sql.NullString
		if err := rows.Scan(&chat.ID, &chat.UserID, &title, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		if title.Valid {
			chat.Title = &title.String
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (s *SQLiteStore) UpdateChatTitle(chatID string, userID int64, title string) error {
	stmt, err := s.db.Prepare("UPDATE chats SET title = ? WHERE id = ? AND user_id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare chat title update: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(title, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to execute chat title update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("chat not found or not owned by user, title not updated")
	}
	return nil
}

// Message methods

func (s *SQLiteStore) CreateMessage(msg *Message) error {
	msg.ID = uuid.NewString() // Ensure ID is set
	msg.Timestamp = time.Now()

	var refs sql.NullString
	if len(msg.ArticleIDs) > 0 {
		data, err := json.Marshal(msg.ArticleIDs)
		if err != nil {
			return fmt.Errorf("failed to marshal article refs: %w", err)
		}
		refs = sql.NullString{String: string(data), Valid: true}
	}

	stmt, err := s.db.Prepare("INSERT INTO messages (id, chat_id, role, content, provider, article_refs, timestamp, negative_feedback) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(msg.ID, msg.ChatID, msg.Role, msg.Content, msg.Provider, refs, msg.Timestamp, msg.NegativeFeedback)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMessagesByChatID(chatID string, limit int, offset int) ([]Message, error) {
	query := "SELECT id, chat_id, role, content, provider, article_refs, timestamp, negative_feedback FROM messages WHERE chat_id = ? ORDER BY timestamp ASC LIMIT ? OFFSET ?"
	rows, err := s.db.Query(query, chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *SQLiteStore) GetLastNMessagesByChatID(chatID string, n int) ([]Message, error) {
	query := `
        SELECT id, chat_id, role, content, provider, article_refs, timestamp, negative_feedback
        FROM messages
        WHERE chat_id = ?
        ORDER BY timestamp DESC
        LIMIT ?
    `

	rows, err := s.db.Query(query, chatID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var msg Message
		var provider, refs sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &provider, &refs, &msg.Timestamp, &msg.NegativeFeedback); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if provider.Valid {
			msg.Provider = provider.String
		}
		if refs.Valid && refs.String != "" {
			if err := json.Unmarshal([]byte(refs.String), &msg.ArticleIDs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal article refs for message %s: %w", msg.ID, err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) UpdateMessageFeedback(messageID string, negativeFeedback bool) error {
	stmt, err := s.db.Prepare("UPDATE messages SET negative_feedback = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare feedback update: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(negativeFeedback, messageID)
	if err != nil {
		return fmt.Errorf("failed to execute feedback update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("message not found, feedback not updated")
	}
	return nil
}

// Article methods

// InsertArticle persists one enriched article. Articles are append-only: rows
// are never updated after this call. A nil embedding is stored as NULL.
func (s *SQLiteStore) InsertArticle(article *Article) error {
	var embedding sql.NullString
	if len(article.Embedding) > 0 {
		encoded, err := EncodeEmbedding(article.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding: %w", err)
		}
		embedding = sql.NullString{String: encoded, Valid: true}
	}

	stmt, err := s.db.Prepare(`INSERT INTO articles
        (title, author, source, url, category, published_at, fetched_at, summary, sentiment, embedding_json)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare article insert: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(article.Title, article.Author, article.Source, article.URL, article.Category,
		article.PublishedAt, article.FetchedAt, article.Summary, article.Sentiment, embedding)
	if err != nil {
		return fmt.Errorf("failed to execute article insert: %w", err)
	}
	article.ID, _ = res.LastInsertId()
	return nil
}

// HasArticleURL reports whether an article with this URL was already ingested.
func (s *SQLiteStore) HasArticleURL(url string) (bool, error) {
	var id int64
	err := s.db.QueryRow("SELECT id FROM articles WHERE url = ?", url).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query article by url: %w", err)
	}
	return true, nil
}

// GetEmbeddedArticles returns a consistent snapshot of every article whose
// embedding column is non-NULL. Rows with an undecodable embedding are skipped
// with a warning rather than failing the whole retrieval.
func (s *SQLiteStore) GetEmbeddedArticles() ([]Article, error) {
	rows, err := s.db.Query(`SELECT id, title, author, source, url, category, published_at, fetched_at, summary, sentiment, embedding_json
        FROM articles WHERE embedding_json IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embedded articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		if article.Embedding == nil {
			s.logger.Warn("skipping article with undecodable embedding", "article_id", article.ID)
			continue
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// GetArticlesByCategory lists the most recently published articles for a topic.
// An empty category returns articles across all topics.
func (s *SQLiteStore) GetArticlesByCategory(category string, limit int) ([]Article, error) {
	query := `SELECT id, title, author, source, url, category, published_at, fetched_at, summary, sentiment, embedding_json
        FROM articles`
	args := []any{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY published_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func scanArticle(rows *sql.Rows) (Article, error) {
	var article Article
	var author, source, summary, sentiment, embedding sql.NullString
	if err := rows.Scan(&article.ID, &article.Title, &author, &source, &article.URL, &article.Category,
		&article.PublishedAt, &article.FetchedAt, &summary, &sentiment, &embedding); err != nil {
		return Article{}, fmt.Errorf("failed to scan article row: %w", err)
	}
	article.Author = author.String
	article.Source = source.String
	article.Summary = summary.String
	article.Sentiment = sentiment.String
	if embedding.Valid && embedding.String != "" {
		vec, err := DecodeEmbedding(embedding.String)
		if err != nil {
			// Leave Embedding nil; callers decide whether to skip the row.
			return article, nil
		}
		article.Embedding = vec
	}
	return article, nil
}
