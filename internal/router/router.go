package router

import (
	"eel-pool/internal/config"
	"eel-pool/internal/handler"
	"eel-pool/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup configures the Gin engine: middleware, static files and the
// single action endpoint the client talks to.
func Setup(cfg *config.Config, db *gorm.DB, log *zap.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowCredentials = false
	r.Use(cors.New(corsCfg))

	// the client bundle is deployed into web/static; the checked-in
	// index.html is a placeholder until then
	r.Static("/static", "./web/static")
	r.StaticFile("/", "./web/static/index.html")

	h := handler.New(db, cfg, log)

	// Every action goes through one endpoint. Auth is optional at the
	// edge; handlers that need a user or an operator check themselves.
	r.POST("/api",
		middleware.OptionalAuth(cfg.JWT.Secret, db),
		middleware.Audit(db),
		h.Dispatch,
	)

	return r
}
