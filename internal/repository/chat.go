package repository

import (
	"context"
	"time"

	"greenhouse-assistant/backend/internal/models"

	"gorm.io/gorm"
)

const (
	DefaultChatLimit = 50
	MaxChatLimit     = 100
)

// ChatRepository stores chats and their messages
type ChatRepository interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetByID(ctx context.Context, id uint) (*models.Chat, error)
	GetWithMessages(ctx context.Context, id uint) (*models.Chat, error)
	ListByOwner(ctx context.Context, ownerID uint, skip, limit int) ([]models.Chat, error)
	Rename(ctx context.Context, id uint, name string) (*models.Chat, error)
	Delete(ctx context.Context, id uint) error
	OwnerOf(ctx context.Context, id uint) (uint, error)
	AppendMessage(ctx context.Context, chatID uint, author, body string) (*models.Message, error)
	ListMessages(ctx context.Context, chatID uint) ([]models.Message, error)
}

// GormChatRepository implements ChatRepository
type GormChatRepository struct {
	base
	now func() time.Time
}

// NewGormChatRepository creates a chat repository
func NewGormChatRepository(db *gorm.DB, timeout time.Duration) *GormChatRepository {
	return &GormChatRepository{base: newBase(db, timeout), now: time.Now}
}

// WithClock replaces the time source used to stamp messages and chats
func (r *GormChatRepository) WithClock(now func() time.Time) *GormChatRepository {
	r.now = now
	return r
}

// chronological orders messages by insertion, which stays correct when the
// wall clock steps backwards
func chronological(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func (r *GormChatRepository) Create(ctx context.Context, chat *models.Chat) error {
	return r.run(ctx, "Chat", func(db *gorm.DB) error {
		return db.Create(chat).Error
	})
}

func (r *GormChatRepository) GetByID(ctx context.Context, id uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.run(ctx, "Chat", func(db *gorm.DB) error {
		return db.First(&chat, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *GormChatRepository) GetWithMessages(ctx context.Context, id uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.run(ctx, "Chat", func(db *gorm.DB) error {
		return db.Preload("Messages", chronological).First(&chat, id).Error
	})
	if err != nil {
		return nil, err
	}
	if chat.Messages == nil {
		chat.Messages = []models.Message{}
	}
	return &chat, nil
}

func (r *GormChatRepository) ListByOwner(ctx context.Context, ownerID uint, skip, limit int) ([]models.Chat, error) {
	skip, limit = page(skip, limit, DefaultChatLimit, MaxChatLimit)
	chats := []models.Chat{}
	err := r.run(ctx, "Chat", func(db *gorm.DB) error {
		return db.Where("owner_id = ?", ownerID).
			Order("updated_at DESC").Order("id DESC").
			Offset(skip).Limit(limit).
			Find(&chats).Error
	})
	return chats, err
}

func (r *GormChatRepository) Rename(ctx context.Context, id uint, name string) (*models.Chat, error) {
	var chat models.Chat
	err := r.transaction(ctx, "Chat", func(tx *gorm.DB) error {
		res := tx.Model(&models.Chat{}).Where("id = ?", id).
			Updates(map[string]any{"name": name, "updated_at": r.now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&chat, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// Delete removes the chat and all of its messages in one transaction
func (r *GormChatRepository) Delete(ctx context.Context, id uint) error {
	return r.transaction(ctx, "Chat", func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Chat{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormChatRepository) OwnerOf(ctx context.Context, id uint) (uint, error) {
	var chat models.Chat
	err := r.run(ctx, "Chat", func(db *gorm.DB) error {
		return db.Select("id", "owner_id").First(&chat, id).Error
	})
	return chat.OwnerID, err
}

// AppendMessage inserts the message and advances the chat's updated_at in
// the same transaction; neither write survives if the other fails. The stamp
// never goes below the chat's current updated_at.
func (r *GormChatRepository) AppendMessage(ctx context.Context, chatID uint, author, body string) (*models.Message, error) {
	var msg *models.Message
	err := r.transaction(ctx, "Chat", func(tx *gorm.DB) error {
		var chat models.Chat
		if err := tx.Select("id", "updated_at").First(&chat, chatID).Error; err != nil {
			return err
		}
		now := r.now().UTC()
		if now.Before(chat.UpdatedAt) {
			now = chat.UpdatedAt.UTC()
		}

		res := tx.Model(&models.Chat{}).Where("id = ?", chatID).Update("updated_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		msg = &models.Message{ChatID: chatID, Author: author, Body: body, SentAt: now}
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *GormChatRepository) ListMessages(ctx context.Context, chatID uint) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.run(ctx, "Chat", func(db *gorm.DB) error {
		return chronological(db.Where("chat_id = ?", chatID)).Find(&messages).Error
	})
	return messages, err
}
