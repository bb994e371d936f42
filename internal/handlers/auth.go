package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/sprintboard/internal/auth"
	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/pkg/response"
)

// AuthHandler manages local registration, login and the current identity.
type AuthHandler struct {
	accounts *iauth.AccountService
}

func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService) (*AuthHandler, error) {
	accounts, err := iauth.NewAccountService(db, jwt)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{accounts: accounts}, nil
}

type registerRequest struct {
	Username    string `json:"username" validate:"required,notblank,min=3,max=64"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"omitempty,max=128"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,notblank"`
	Password   string `json:"password" validate:"required"`
}

type userPayload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func newUserPayload(user *models.User) userPayload {
	return userPayload{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.accounts.Register(requestContext(c), iauth.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, newUserPayload(user))
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, token, err := h.accounts.Authenticate(requestContext(c), iauth.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"user":  newUserPayload(user),
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.accounts.Get(requestContext(c), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, newUserPayload(user))
}
