package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"eel-pool/internal/models"
	"eel-pool/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SessionCookie is the cookie the client keeps its token in.
const SessionCookie = "eel_session"

const userKey = "currentUser"

// CurrentUser returns the authenticated user placed in the context by
// Auth or OptionalAuth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// resolveUser validates the token from header/query/cookie against the
// session table and loads the user. Returns nil without error when no
// token is present.
func resolveUser(c *gin.Context, jwtSecret string, db *gorm.DB) (*models.User, error) {
	var tokenStr string

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenStr = parts[1]
		}
	}
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}
	if tokenStr == "" {
		if cookie, err := c.Cookie(SessionCookie); err == nil {
			tokenStr = cookie
		}
	}
	if tokenStr == "" {
		return nil, nil
	}

	claims, err := util.ParseToken(jwtSecret, tokenStr)
	if err != nil || claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("session expired")
	}

	var session models.Session
	if err := db.First(&session, "id = ?", claims.SessionID).Error; err != nil {
		return nil, errors.New("session not found")
	}
	if session.Revoked || session.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("session revoked")
	}

	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return nil, errors.New("user not found")
	}
	if user.IsBanned {
		return nil, errors.New("account is banned")
	}
	return &user, nil
}

// Auth requires a valid, unrevoked session and puts the user into the
// context.
func Auth(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolveUser(c, jwtSecret, db)
		if err != nil {
			util.Error(c, http.StatusUnauthorized, "Please log in again")
			c.Abort()
			return
		}
		if user == nil {
			util.Error(c, http.StatusUnauthorized, "Not logged in")
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// OptionalAuth loads the user when a valid session is present but lets
// anonymous requests through. Used for the mixed public/private action
// endpoint, where each handler checks CurrentUser itself.
func OptionalAuth(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := resolveUser(c, jwtSecret, db); err == nil && user != nil {
			c.Set(userKey, user)
		}
		c.Next()
	}
}
