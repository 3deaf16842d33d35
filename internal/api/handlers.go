package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/newsmind/newsmind/internal/auth"
	"github.com/newsmind/newsmind/internal/core"
	"github.com/newsmind/newsmind/internal/llm"
	"github.com/newsmind/newsmind/internal/store"
)

// ArticleLister exposes the read side of the article corpus to the API.
type ArticleLister interface {
	GetArticlesByCategory(category string, limit int) ([]store.Article, error)
}

type APIHandler struct {
	chatService   *core.ChatService
	ingestService *core.IngestService
	articles      ArticleLister
	logger        *slog.Logger
}

func NewAPIHandler(cs *core.ChatService, is *core.IngestService, articles ArticleLister, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{
		chatService:   cs,
		ingestService: is,
		articles:      articles,
		logger:        logger.With("component", "api"),
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		externalUserID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.chatService.GetUserByExternalID(externalUserID)
		if err != nil {
			h.logger.Error("failed to resolve user identity", "external_user_id", externalUserID, "err", err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}

		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", user.ID)
		ctx = context.WithValue(ctx, "externalUserID", user.ExternalUserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.Password == "" {
		http.Error(w, "User ID and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "user_id", req.UserID, "err", err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.chatService.CreateUser(req.UserID, hashedPassword)
	if err != nil {
		h.logger.Error("failed to create user", "user_id", req.UserID, "err", err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.Password == "" {
		http.Error(w, "User ID and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.chatService.GetUserByExternalID(req.UserID)
	if err != nil {
		h.logger.Error("failed to load user", "user_id", req.UserID, "err", err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(req.UserID)
	if err != nil {
		h.logger.Error("failed to generate JWT", "user_id", req.UserID, "err", err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

type CreateChatRequest struct {
	FirstMessage *string `json:"first_message,omitempty"`
	Provider     string  `json:"provider,omitempty"`
}

type CreateChatResponse struct {
	*store.Chat
	Messages []store.Message `json:"messages,omitempty"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req CreateChatRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	backend, err := llm.ParseBackend(req.Provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	chat, messages, err := h.chatService.CreateChat(r.Context(), userID, req.FirstMessage, backend)
	if err != nil {
		h.logger.Error("failed to create chat", "user_id", userID, "err", err)
		http.Error(w, "Failed to create chat", http.StatusInternalServerError)
		return
	}

	resp := CreateChatResponse{
		Chat:     chat,
		Messages: messages,
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	chats, err := h.chatService.GetChats(userID)
	if err != nil {
		h.logger.Error("failed to list chats", "user_id", userID, "err", err)
		http.Error(w, "Failed to list chats", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(chats)
}

type GetChatDetailsResponse struct {
	*store.Chat
	Messages []store.Message `json:"messages"`
}

func (h *APIHandler) GetChatDetailsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	chatID := chi.URLParam(r, "chatID")

	chat, messages, err := h.chatService.GetChatDetails(chatID, userID)
	if err != nil {
		h.logger.Error("failed to get chat details", "user_id", userID, "chat_id", chatID, "err", err)
		http.Error(w, "Failed to get chat details", http.StatusInternalServerError)
		return
	}
	if chat == nil {
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	}

	resp := GetChatDetailsResponse{
		Chat:     chat,
		Messages: messages,
	}
	json.NewEncoder(w).Encode(resp)
}

type PostMessageRequest struct {
	Content  string `json:"content"`
	Provider string `json:"provider,omitempty"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	chatID := chi.URLParam(r, "chatID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	backend, err := llm.ParseBackend(req.Provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	assistantMessage, err := h.chatService.PostMessage(r.Context(), chatID, userID, req.Content, backend)
	if err != nil {
		if err.Error() == "chat not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			h.logger.Error("failed to post message", "user_id", userID, "chat_id", chatID, "err", err)
			http.Error(w, "Failed to post message", http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(assistantMessage)
}

type FeedbackRequest struct {
	Negative bool `json:"negative"`
}

func (h *APIHandler) MessageFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	messageID := chi.URLParam(r, "messageID")

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.chatService.SetMessageFeedback(messageID, userID, req.Negative)
	if err != nil {
		if err.Error() == "message not found, feedback not updated" {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			h.logger.Error("failed to set feedback", "message_id", messageID, "user_id", userID, "err", err)
			http.Error(w, "Failed to set feedback", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type IngestRequest struct {
	Topics   []string `json:"topics"`
	Provider string   `json:"provider,omitempty"`
}

// IngestHandler runs the ingestion pipeline for the requested topics and
// returns the per-topic counts.
func (h *APIHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Topics) == 0 {
		http.Error(w, "At least one topic is required", http.StatusBadRequest)
		return
	}

	backend, err := llm.ParseBackend(req.Provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reports, err := h.ingestService.Run(r.Context(), req.Topics, backend)
	if err != nil {
		h.logger.Error("ingestion run failed", "err", err)
		http.Error(w, "Failed to run ingestion", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(reports)
}

// ListArticlesHandler returns the most recent articles, optionally filtered
// by topic.
func (h *APIHandler) ListArticlesHandler(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	articles, err := h.articles.GetArticlesByCategory(topic, limit)
	if err != nil {
		h.logger.Error("failed to list articles", "topic", topic, "err", err)
		http.Error(w, "Failed to list articles", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(articles)
}
