package api

import (
	"net/http"
	"strconv"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/internal/service"
	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatController handles chat endpoints
type ChatController struct {
	chats  *service.ChatService
	logger *logger.Logger
}

// NewChatController creates a new chat controller
func NewChatController(chats *service.ChatService, logger *logger.Logger) *ChatController {
	return &ChatController{chats: chats, logger: logger}
}

// RegisterRoutes registers the chat routes on an authenticated group.
// aiLimit guards the endpoint that calls the assistant.
func (ctl *ChatController) RegisterRoutes(group *gin.RouterGroup, aiLimit gin.HandlerFunc) {
	chats := group.Group("/chats")
	{
		chats.POST("", ctl.Create)
		chats.GET("", ctl.List)
		chats.GET("/:id", ctl.authorize, ctl.Get)
		chats.POST("/:id/messages", aiLimit, ctl.authorize, ctl.SendMessage)
		chats.PATCH("/:id", ctl.authorize, ctl.Rename)
		chats.DELETE("/:id", ctl.authorize, ctl.Delete)
	}
}

const chatIDKey = "chatID"

// authorize resolves the chat id and checks the caller owns the chat
func (ctl *ChatController) authorize(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	chatID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	if err := ctl.chats.Authorize(c.Request.Context(), userID, chatID); err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	c.Set(chatIDKey, chatID)
	c.Next()
}

// Create creates an empty chat owned by the caller
func (ctl *ChatController) Create(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		c.Error(err)
		return
	}
	var req models.CreateChatRequest
	if !bind(c, &req) {
		return
	}

	chat, err := ctl.chats.CreateChat(c.Request.Context(), userID, req.Name)
	if err != nil {
		c.Error(err)
		return
	}
	logger.FromGin(c, ctl.logger).Info("Chat created", "chat_id", chat.ID)
	c.JSON(http.StatusCreated, chat)
}

// List returns the caller's chats, most recently updated first
func (ctl *ChatController) List(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		c.Error(err)
		return
	}
	if raw := c.Query("owner"); raw != "" {
		owner, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.Error(apperrors.NewBadRequestError(apperrors.CodeValidation, "owner must be a positive integer"))
			return
		}
		if uint(owner) != userID {
			c.Error(apperrors.NewForbiddenError(apperrors.CodeForbidden, "You can only list your own chats"))
			return
		}
	}
	skip, limit, err := pageParams(c, repository.DefaultChatLimit, repository.MaxChatLimit)
	if err != nil {
		c.Error(err)
		return
	}

	chats, err := ctl.chats.ListChats(c.Request.Context(), userID, skip, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

// Get returns the chat with its messages in order
func (ctl *ChatController) Get(c *gin.Context) {
	chat, err := ctl.chats.GetChat(c.Request.Context(), c.GetUint(chatIDKey))
	if err != nil {
		c.Error(err)
		return
	}
	if chat.Messages == nil {
		chat.Messages = []models.Message{}
	}
	c.JSON(http.StatusOK, chat)
}

// SendMessage stores the user's message and returns the assistant's reply
func (ctl *ChatController) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if !bind(c, &req) {
		return
	}

	reply, err := ctl.chats.SendUserMessageAndGetReply(
		c.Request.Context(),
		c.GetUint(chatIDKey),
		req.Message,
		req.SensorData,
		req.PlantAnalysis,
	)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Rename changes the chat's name
func (ctl *ChatController) Rename(c *gin.Context) {
	var req models.RenameChatRequest
	if !bind(c, &req) {
		return
	}

	chat, err := ctl.chats.RenameChat(c.Request.Context(), c.GetUint(chatIDKey), req.Name)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// Delete removes the chat and its messages
func (ctl *ChatController) Delete(c *gin.Context) {
	if err := ctl.chats.DeleteChat(c.Request.Context(), c.GetUint(chatIDKey)); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
