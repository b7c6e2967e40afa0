package api

import (
	"net/http"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// UserController handles account listing and updates
type UserController struct {
	service *service.UserService
}

// NewUserController creates a new UserController
func NewUserController(service *service.UserService) *UserController {
	return &UserController{service: service}
}

// List returns a page of users
func (ctl *UserController) List(c *gin.Context) {
	skip, limit, err := pageParams(c, repository.DefaultUserLimit, repository.MaxUserLimit)
	if err != nil {
		c.Error(err)
		return
	}
	users, err := ctl.service.ListUsers(c.Request.Context(), skip, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Update changes the caller's own username or password
func (ctl *UserController) Update(c *gin.Context) {
	callerID, err := currentUser(c)
	if err != nil {
		c.Error(err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	var req models.UpdateUserRequest
	if !bind(c, &req) {
		return
	}

	user, err := ctl.service.UpdateUser(c.Request.Context(), callerID, id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}
