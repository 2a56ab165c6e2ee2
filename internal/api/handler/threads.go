package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deskrelay/backend/internal/storage"
)

const defaultTranscriptLimit = 20

// ListThreads returns active threads, newest first.
func (h *Handler) ListThreads(c *gin.Context) {
	threads, err := h.Store.ListActiveThreads()
	if err != nil {
		h.log.Error("list threads failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

// ThreadDetail returns one thread plus its last N transcript rows.
func (h *Handler) ThreadDetail(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}
	limit := defaultTranscriptLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	thread, err := h.Store.GetThreadByID(uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}
	if err != nil {
		h.log.Error("thread detail failed", zap.Uint64("thread_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	msgs, err := h.Store.GetThreadMessages(uint(id), limit)
	if err != nil {
		h.log.Error("transcript load failed", zap.Uint64("thread_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": thread, "messages": msgs})
}

// CloseThread closes a thread through the router, which also takes care
// of the best-effort topic close and user notification.
func (h *Handler) CloseThread(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}
	if err := h.Router.Close(uint(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		h.log.Error("close thread failed", zap.Uint64("thread_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

func (h *Handler) GetStats(c *gin.Context) {
	st, err := h.Store.Stats()
	if err != nil {
		h.log.Error("stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, st)
}
