package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/internal/testutil"
	apperrors "greenhouse-assistant/backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// steppingClock returns the given instants in turn, then repeats the last one
func steppingClock(instants ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		at := instants[i]
		if i < len(instants)-1 {
			i++
		}
		return at
	}
}

func chatUpdatedAt(t *testing.T, db *gorm.DB, chatID uint) time.Time {
	t.Helper()
	var chat models.Chat
	require.NoError(t, db.First(&chat, chatID).Error)
	return chat.UpdatedAt
}

func newChatFixture(t *testing.T) (*gorm.DB, *models.Chat) {
	t.Helper()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "grower")
	chat := testutil.CreateChat(t, db, user.ID, "Tomatoes")
	testutil.BackdateChat(t, db, chat.ID, epoch.Add(-time.Hour))
	return db, chat
}

func TestAppendMessageRollsBackWhenInsertFails(t *testing.T) {
	db, chat := newChatFixture(t)
	before := chatUpdatedAt(t, db, chat.ID)

	errInsert := errors.New("disk full")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_messages", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "messages" {
			_ = tx.AddError(errInsert)
		}
	}))

	repo := repository.NewGormChatRepository(db, 0).WithClock(steppingClock(epoch))
	_, err := repo.AppendMessage(context.Background(), chat.ID, models.AuthorUser, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, errInsert)

	assert.True(t, before.Equal(chatUpdatedAt(t, db, chat.ID)))
	var count int64
	require.NoError(t, db.Model(&models.Message{}).Where("chat_id = ?", chat.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAppendMessageUnknownChat(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewGormChatRepository(db, 0)

	_, err := repo.AppendMessage(context.Background(), 404, models.AuthorUser, "hello")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "CHAT_NOT_FOUND"))
}

func TestAppendMessageAdvancesUpdatedAtOnEachAppend(t *testing.T) {
	db, chat := newChatFixture(t)
	repo := repository.NewGormChatRepository(db, 0).
		WithClock(steppingClock(epoch, epoch.Add(time.Second)))
	ctx := context.Background()
	start := chatUpdatedAt(t, db, chat.ID)

	_, err := repo.AppendMessage(ctx, chat.ID, models.AuthorUser, "Is it too humid?")
	require.NoError(t, err)
	afterUser := chatUpdatedAt(t, db, chat.ID)
	assert.True(t, afterUser.After(start))

	_, err = repo.AppendMessage(ctx, chat.ID, models.AuthorAssistant, "Open the vents.")
	require.NoError(t, err)
	afterReply := chatUpdatedAt(t, db, chat.ID)
	assert.True(t, afterReply.After(afterUser))
}

func TestAppendMessageUpdatedAtNeverGoesBackwards(t *testing.T) {
	db, chat := newChatFixture(t)
	repo := repository.NewGormChatRepository(db, 0).WithClock(steppingClock(
		epoch,
		epoch.Add(2*time.Second),
		epoch.Add(time.Second),
		epoch.Add(-time.Minute),
		epoch.Add(3*time.Second),
	))
	ctx := context.Background()

	previous := chatUpdatedAt(t, db, chat.ID)
	for i := 0; i < 5; i++ {
		msg, err := repo.AppendMessage(ctx, chat.ID, models.AuthorUser, "reading")
		require.NoError(t, err)

		current := chatUpdatedAt(t, db, chat.ID)
		assert.False(t, current.Before(previous), "append %d moved updated_at from %s to %s", i, previous, current)
		assert.True(t, msg.SentAt.Equal(current))
		previous = current
	}
	assert.True(t, previous.Equal(epoch.Add(3*time.Second)))
}

func TestListMessagesFollowsInsertionOrder(t *testing.T) {
	db, chat := newChatFixture(t)
	ctx := context.Background()

	// Rows written with stamps that disagree with their insertion order
	for i, body := range []string{"first", "second", "third"} {
		msg := &models.Message{
			ChatID: chat.ID,
			Author: models.AuthorUser,
			Body:   body,
			SentAt: epoch.Add(-time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(msg).Error)
	}

	repo := repository.NewGormChatRepository(db, 0)
	messages, err := repo.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Body)
	assert.Equal(t, "second", messages[1].Body)
	assert.Equal(t, "third", messages[2].Body)

	withMessages, err := repo.GetWithMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, withMessages.Messages, 3)
	assert.Equal(t, "first", withMessages.Messages[0].Body)
	assert.Equal(t, "third", withMessages.Messages[2].Body)
}
