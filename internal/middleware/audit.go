package middleware

import (
	"strings"

	"eel-pool/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// actions that only read state and are not worth an audit row
var readOnlyActions = map[string]bool{
	"get_session":        true,
	"get_presentations":  true,
	"get_categories":     true,
	"get_comments":       true,
	"get_my_investments": true,
	"get_all_users":      true,
}

// Audit appends an AuditLog row for every mutating action performed by a
// logged-in user. Password fields never reach the log.
func Audit(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		user := CurrentUser(c)
		if user == nil {
			return
		}

		action := c.PostForm("action")
		if action == "" || readOnlyActions[action] {
			return
		}

		var fields []string
		for key, vals := range c.Request.PostForm {
			if key == "action" || strings.Contains(key, "password") {
				continue
			}
			for _, v := range vals {
				fields = append(fields, key+"="+v)
			}
		}
		meta := strings.Join(fields, "&")
		if len(meta) > 2000 {
			meta = meta[:2000]
		}

		entry := models.AuditLog{
			UserID:    &user.ID,
			Action:    action,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Metadata:  meta,
		}
		_ = db.Create(&entry).Error
	}
}
