package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/newsmind/newsmind/internal/llm"
	"github.com/newsmind/newsmind/internal/store"
)

// TurnState tracks how far a chat turn progressed. Every turn that enters the
// service terminates in TurnLogged: stage failures before the answer degrade
// to fallback values instead of dropping the turn.
type TurnState string

const (
	TurnReceived  TurnState = "received"
	TurnEmbedded  TurnState = "embedded"
	TurnRetrieved TurnState = "retrieved"
	TurnAnswered  TurnState = "answered"
	TurnLogged    TurnState = "logged"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const chatTitleMaxLen = 60

type ChatService struct {
	dbStore    *store.SQLiteStore
	ragService *RAGService
	logger     *slog.Logger
}

func NewChatService(db *store.SQLiteStore, rag *RAGService, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		dbStore:    db,
		ragService: rag,
		logger:     logger.With("component", "chat"),
	}
}

func (s *ChatService) GetUserByExternalID(externalUserID string) (*store.User, error) {
	return s.dbStore.GetUserByExternalID(externalUserID)
}

func (s *ChatService) CreateUser(externalUserID, passwordHash string) (*store.User, error) {
	return s.dbStore.CreateUser(externalUserID, passwordHash)
}

func (s *ChatService) CreateChat(ctx context.Context, userID int64, firstMessageContent *string, backend llm.Backend) (*store.Chat, []store.Message, error) {
	chat, err := s.dbStore.CreateChat(userID, nil) // Title derived from the first message later
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create chat in DB: %w", err)
	}

	var messages []store.Message

	if firstMessageContent != nil && *firstMessageContent != "" {
		if _, err := s.PostMessage(ctx, chat.ID, userID, *firstMessageContent, backend); err != nil {
			// Return the chat anyway; the first exchange just didn't happen.
			s.logger.Warn("failed to run first exchange for new chat", "chat_id", chat.ID, "err", err)
			return chat, nil, nil
		}
		messages, err = s.dbStore.GetMessagesByChatID(chat.ID, 100, 0)
		if err != nil {
			s.logger.Warn("failed to load messages for new chat", "chat_id", chat.ID, "err", err)
		}
	}

	return chat, messages, nil
}

func (s *ChatService) GetChats(userID int64) ([]store.Chat, error) {
	return s.dbStore.GetChatsByUserID(userID)
}

func (s *ChatService) GetChatDetails(chatID string, userID int64) (*store.Chat, []store.Message, error) {
	chat, err := s.dbStore.GetChatByID(chatID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil {
		return nil, nil, nil // Not found
	}

	messages, err := s.dbStore.GetMessagesByChatID(chatID, 100, 0) // Get up to 100 messages
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages for chat: %w", err)
	}
	return chat, messages, nil
}

// PostMessage runs one chat turn against the explicitly chosen backend:
// store the user message, embed it, retrieve grounding articles, generate
// the answer, and store the assistant reply with its article references.
// Embedding or retrieval failures degrade to an ungrounded answer; an answer
// backend failure degrades to the fallback sentinel. The turn always reaches
// the log unless the store itself fails, and that error is surfaced.
func (s *ChatService) PostMessage(ctx context.Context, chatID string, userID int64, content string, backend llm.Backend) (*store.Message, error) {
	// Verify chat exists and belongs to user
	chat, err := s.dbStore.GetChatByID(chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify chat: %w", err)
	}
	if chat == nil {
		return nil, fmt.Errorf("chat not found")
	}

	logger := s.logger.With("chat_id", chatID, "backend", backend)

	userMsg := store.Message{
		ChatID:   chatID,
		Role:     RoleUser,
		Content:  content,
		Provider: string(backend),
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}
	state := TurnReceived
	logger.Debug("turn state", "state", state)

	queryEmbedding, err := s.ragService.EmbedQuery(ctx, content)
	if err != nil {
		logger.Warn("query embedding failed, answering without retrieval", "err", err)
	} else {
		state = TurnEmbedded
		logger.Debug("turn state", "state", state)
	}

	var retrieved []ScoredArticle
	if len(queryEmbedding) > 0 {
		retrieved, err = s.ragService.Rank(queryEmbedding, 0)
		if err != nil {
			logger.Warn("retrieval failed, answering without context", "err", err)
			retrieved = nil
		} else {
			state = TurnRetrieved
			logger.Debug("turn state", "state", state)
		}
	}

	answer := s.ragService.Answer(ctx, backend, content, retrieved)
	state = TurnAnswered
	logger.Debug("turn state", "state", state)

	articleIDs := make([]int64, 0, len(retrieved))
	for _, sa := range retrieved {
		articleIDs = append(articleIDs, sa.Article.ID)
	}

	assistantMsg := store.Message{
		ChatID:     chatID,
		Role:       RoleAssistant,
		Content:    answer,
		Provider:   string(backend),
		ArticleIDs: articleIDs,
	}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}
	state = TurnLogged
	logger.Info("chat turn complete", "state", state, "grounded_on", len(articleIDs))

	if chat.Title == nil || *chat.Title == "" {
		s.setChatTitleFromContent(chatID, userID, content)
	}

	return &assistantMsg, nil
}

// setChatTitleFromContent derives a title from the first user message.
func (s *ChatService) setChatTitleFromContent(chatID string, userID int64, content string) {
	title := strings.TrimSpace(content)
	if title == "" {
		return
	}
	if runes := []rune(title); len(runes) > chatTitleMaxLen {
		title = strings.TrimSpace(string(runes[:chatTitleMaxLen])) + "..."
	}

	if err := s.dbStore.UpdateChatTitle(chatID, userID, title); err != nil {
		s.logger.Warn("failed to set chat title", "chat_id", chatID, "err", err)
	}
}

func (s *ChatService) SetMessageFeedback(messageID string, userID int64, negative bool) error {
	// Should verify that the message belongs to the user's chat
	return s.dbStore.UpdateMessageFeedback(messageID, negative)
}
