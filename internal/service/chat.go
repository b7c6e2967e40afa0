package service

import (
	"context"

	"greenhouse-assistant/backend/ai"
	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/repository"
	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/logger"
)

// AIClientProvider hands out the shared AI client, building it on first use
type AIClientProvider interface {
	Get(ctx context.Context) (*ai.Client, error)
}

// ChatService turns user messages into persisted exchanges with the AI
// assistant.
//
// Concurrent sends to the same chat are not serialized: two requests may read
// overlapping histories and their messages may interleave. Each reply is
// still stored after its own user message.
type ChatService struct {
	chats repository.ChatRepository
	ai    AIClientProvider
	log   *logger.Logger
}

// NewChatService creates a chat service
func NewChatService(chats repository.ChatRepository, aiClient AIClientProvider, log *logger.Logger) *ChatService {
	if log == nil {
		log = logger.Discard()
	}
	return &ChatService{chats: chats, ai: aiClient, log: log}
}

// CreateChat creates an empty chat for owner
func (s *ChatService) CreateChat(ctx context.Context, ownerID uint, name string) (*models.Chat, error) {
	chat := &models.Chat{OwnerID: ownerID, Name: name}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// AppendMessage stores a message and advances the chat's updated_at atomically
func (s *ChatService) AppendMessage(ctx context.Context, chatID uint, author, body string) (*models.Message, error) {
	if !models.ValidAuthor(author) {
		return nil, apperrors.NewBadRequestError(apperrors.CodeValidation, "Unknown message author: "+author)
	}
	return s.chats.AppendMessage(ctx, chatID, author, body)
}

// SendUserMessageAndGetReply stores text as a user message, asks the assistant
// for a reply with the chat history and the optional context, and stores the
// reply. When the assistant fails, or its reply cannot be stored, the user
// message stays stored and a provider error is returned.
func (s *ChatService) SendUserMessageAndGetReply(ctx context.Context, chatID uint, text string, sensorData ai.SensorData, analysis *ai.PlantAnalysis) (*models.Message, error) {
	log := s.log.WithContext(ctx)

	userMsg, err := s.AppendMessage(ctx, chatID, models.AuthorUser, text)
	if err != nil {
		return nil, err
	}

	messages, err := s.chats.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	history := HistoryBefore(messages, userMsg.ID)

	client, err := s.ai.Get(ctx)
	if err != nil {
		log.LogError(err, "AI client unavailable", "chat_id", chatID)
		if apperrors.HasCode(err, apperrors.CodeConfiguration) {
			return nil, err
		}
		return nil, apperrors.NewConfigurationError("AI client is not available", err)
	}

	session := client.CreateSession(history)
	reply, err := client.SendMessage(ctx, session, text, sensorData, analysis)
	if err != nil {
		log.Warn("Assistant reply failed, user message kept",
			"chat_id", chatID,
			"message_id", userMsg.ID,
			"error", err.Error(),
		)
		return nil, err
	}

	replyMsg, err := s.AppendMessage(ctx, chatID, models.AuthorAssistant, reply)
	if err != nil {
		log.LogError(err, "Assistant reply could not be stored", "chat_id", chatID, "message_id", userMsg.ID)
		return nil, apperrors.NewProviderError("Failed to store the assistant reply", err)
	}

	log.Info("Chat exchange stored",
		"chat_id", chatID,
		"history_turns", len(history),
		"reply_id", replyMsg.ID,
	)
	return replyMsg, nil
}

// HistoryBefore converts the messages that precede messageID into session
// turns, in order. messageID itself and anything after it are left out.
func HistoryBefore(messages []models.Message, messageID uint) []ai.Turn {
	turns := make([]ai.Turn, 0, len(messages))
	for _, m := range messages {
		if m.ID == messageID {
			break
		}
		turns = append(turns, TurnFromMessage(m))
	}
	return turns
}

// TurnFromMessage maps a stored message to a session turn
func TurnFromMessage(m models.Message) ai.Turn {
	if m.Author == models.AuthorUser {
		return ai.UserTurn(m.Body)
	}
	return ai.ModelTurn(m.Body)
}

// OwnerOf returns the id of the user who owns the chat
func (s *ChatService) OwnerOf(ctx context.Context, chatID uint) (uint, error) {
	return s.chats.OwnerOf(ctx, chatID)
}

// Authorize checks that userID owns the chat
func (s *ChatService) Authorize(ctx context.Context, userID, chatID uint) error {
	owner, err := s.OwnerOf(ctx, chatID)
	if err != nil {
		return err
	}
	if owner != userID {
		return apperrors.NewForbiddenError(apperrors.CodeForbidden, "You do not have access to this chat")
	}
	return nil
}

// GetChat returns the chat with its messages in order
func (s *ChatService) GetChat(ctx context.Context, chatID uint) (*models.Chat, error) {
	return s.chats.GetWithMessages(ctx, chatID)
}

// ListChats returns the owner's chats, most recently updated first
func (s *ChatService) ListChats(ctx context.Context, ownerID uint, skip, limit int) ([]models.Chat, error) {
	return s.chats.ListByOwner(ctx, ownerID, skip, limit)
}

// RenameChat changes the chat name
func (s *ChatService) RenameChat(ctx context.Context, chatID uint, name string) (*models.Chat, error) {
	return s.chats.Rename(ctx, chatID, name)
}

// DeleteChat removes the chat and its messages
func (s *ChatService) DeleteChat(ctx context.Context, chatID uint) error {
	return s.chats.Delete(ctx, chatID)
}
