package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ydjemai93/test-drive/internal/model"
	"github.com/ydjemai93/test-drive/internal/repository"
	"gorm.io/gorm"
)

type WebhookHandler struct {
	webhooks *repository.WebhookRepository
}

func NewWebhookHandler(db *gorm.DB) *WebhookHandler {
	return &WebhookHandler{webhooks: repository.NewWebhookRepository(db)}
}

func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	list, err := h.webhooks.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

type createWebhookRequest struct {
	URL       string `json:"url" binding:"required,url"`
	Platform  string `json:"platform"`
	ChannelID string `json:"channel_id"`
	Events    string `json:"events"`
	Template  string `json:"template"`
}

func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	var req createWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Platform == "" {
		req.Platform = "generic"
	}
	if req.Events == "" {
		req.Events = "*"
	}

	wh := model.Webhook{
		URL:       req.URL,
		Platform:  req.Platform,
		ChannelID: req.ChannelID,
		Events:    req.Events,
		Template:  req.Template,
		Enabled:   true,
	}
	if err := h.webhooks.Create(&wh); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, wh)
}

func (h *WebhookHandler) DeleteWebhook(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook id"})
		return
	}
	if err := h.webhooks.Delete(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Webhook deleted"})
}
