package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"eel-pool/internal/middleware"
	"eel-pool/internal/models"
	"eel-pool/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type signupReq struct {
	Username     string `form:"username" binding:"required"`
	Password     string `form:"password" binding:"required"`
	AccountType  string `form:"account_type"`
	RolePassword string `form:"role_password"`
}

type loginReq struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func userPayload(u *models.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"username":     u.Username,
		"account_type": u.AccountType,
		"balance":      u.Balance,
		"is_banned":    u.IsBanned,
	}
}

// startSession creates a session row, mints its token and sets the cookie.
func (h *Handler) startSession(c *gin.Context, user *models.User) error {
	ttl := time.Duration(h.Cfg.JWT.ExpireHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	session := models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := h.DB.Create(&session).Error; err != nil {
		return err
	}
	token, err := util.GenerateToken(h.Cfg.JWT.Secret, user.ID, session.ID, ttl)
	if err != nil {
		return err
	}
	c.SetCookie(middleware.SessionCookie, token, int(ttl.Seconds()), "/", "", false, true)
	return nil
}

// Signup creates an account. Students need nothing extra; teacher and
// operator accounts require the matching role password from config.
func (h *Handler) Signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := util.ValidateUsername(req.Username); err != nil {
		util.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := util.ValidatePassword(req.Password); err != nil {
		util.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	accountType := req.AccountType
	if accountType == "" {
		accountType = models.RoleStudent
	}
	if !models.ValidRole(accountType) {
		util.Error(c, http.StatusBadRequest, "Invalid account type")
		return
	}
	switch accountType {
	case models.RoleTeacher:
		if h.Cfg.Game.TeacherPassword == "" || req.RolePassword != h.Cfg.Game.TeacherPassword {
			util.Error(c, http.StatusForbidden, "Wrong teacher password")
			return
		}
	case models.RoleOperator:
		if h.Cfg.Game.OperatorPassword == "" || req.RolePassword != h.Cfg.Game.OperatorPassword {
			util.Error(c, http.StatusForbidden, "Wrong operator password")
			return
		}
	}

	// case-insensitive uniqueness
	var count int64
	if err := h.DB.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", req.Username).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to check username")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusBadRequest, "Username is already taken")
		return
	}

	hash, err := util.HashPassword(req.Password)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: hash,
		AccountType:  accountType,
		Balance:      h.Cfg.Game.StartingBalance,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	if err := h.startSession(c, &user); err != nil {
		h.Log.Error("start session", zap.Error(err))
		util.Error(c, http.StatusInternalServerError, "Failed to start session")
		return
	}

	h.Log.Info("account created",
		zap.String("username", user.Username),
		zap.String("account_type", user.AccountType))

	util.Success(c, util.Response{"user": userPayload(&user)})
}

// Login authenticates and starts a session. Banned accounts are refused
// with a distinct message.
func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	var user models.User
	if err := h.DB.Where("LOWER(username) = LOWER(?)", req.Username).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusUnauthorized, "Wrong username or password")
		} else {
			util.Error(c, http.StatusInternalServerError, "Failed to look up user")
		}
		return
	}

	if !util.CheckPassword(req.Password, user.PasswordHash) {
		util.Error(c, http.StatusUnauthorized, "Wrong username or password")
		return
	}
	if user.IsBanned {
		util.Error(c, http.StatusForbidden, "This account has been banned")
		return
	}

	if err := h.startSession(c, &user); err != nil {
		h.Log.Error("start session", zap.Error(err))
		util.Error(c, http.StatusInternalServerError, "Failed to start session")
		return
	}

	util.Success(c, util.Response{"user": userPayload(&user)})
}

// Logout revokes the current session and clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	if tokenStr, err := c.Cookie(middleware.SessionCookie); err == nil {
		if claims, err := util.ParseToken(h.Cfg.JWT.Secret, tokenStr); err == nil {
			h.DB.Model(&models.Session{}).
				Where("id = ?", claims.SessionID).
				Update("revoked", true)
		}
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	util.Success(c, util.Response{})
}

// GetSession reports whether the caller is logged in, without requiring it.
func (h *Handler) GetSession(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Success(c, util.Response{"logged_in": false})
		return
	}
	util.Success(c, util.Response{
		"logged_in": true,
		"user":      userPayload(user),
	})
}
