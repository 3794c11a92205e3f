package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"salesdesk-system/internal/database/models"
	"salesdesk-system/internal/utils"
)

const tokenTTL = 12 * time.Hour

type Handler struct {
	db     *gorm.DB
	secret []byte
}

func NewHandler(db *gorm.DB, jwtSecret string) *Handler {
	return &Handler{db: db, secret: []byte(jwtSecret)}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid registration payload: "+err.Error()))
		return
	}

	role := req.Role
	if role != "admin" {
		role = "employee"
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to hash password"))
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
		Name:     req.Name,
		Role:     role,
		IsActive: true,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Username or email already taken"))
		return
	}

	user.Password = ""
	c.JSON(http.StatusCreated, utils.SuccessResponse("User registered successfully", user))
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Username and password are required"))
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("username = ? AND is_active = ?", req.Username, true).
		First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, utils.ErrorResponse("Invalid credentials"))
		return
	}

	if !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, utils.ErrorResponse("Invalid credentials"))
		return
	}

	token, exp, err := utils.GenerateToken(h.secret, user.ID, user.Username, user.Role, tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to issue token"))
		return
	}

	now := time.Now()
	_ = h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", user.ID).Update("last_login", now).Error

	c.JSON(http.StatusOK, utils.SuccessResponse("Login successful", gin.H{
		"token":      token,
		"expires_at": exp,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"name":     user.Name,
			"role":     user.Role,
		},
	}))
}
