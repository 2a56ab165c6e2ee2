// Package handler is the admin console: a read/query surface over the
// repository plus thread closing, behind operator JWT auth. It carries
// no invariants of its own.
package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deskrelay/backend/internal/relay"
	"deskrelay/backend/internal/storage"
)

type Handler struct {
	Store  storage.Storage
	Router *relay.Router

	secret   []byte
	adminKey string
	log      *zap.Logger
}

func NewHandler(store storage.Storage, router *relay.Router, secret []byte, adminKey string, log *zap.Logger) *Handler {
	return &Handler{
		Store:    store,
		Router:   router,
		secret:   secret,
		adminKey: adminKey,
		log:      log,
	}
}

// Register mounts the console routes.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/api/login", h.Login)

	authed := r.Group("/api", h.RequireAuth)
	authed.GET("/threads", h.ListThreads)
	authed.GET("/threads/:id", h.ThreadDetail)
	authed.POST("/threads/:id/close", h.CloseThread)
	authed.GET("/stats", h.GetStats)
	authed.GET("/live", h.ServeLive)
}
