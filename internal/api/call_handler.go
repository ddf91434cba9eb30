package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ydjemai93/test-drive/internal/agent"
	"github.com/ydjemai93/test-drive/internal/config"
	"github.com/ydjemai93/test-drive/internal/dispatch"
	"github.com/ydjemai93/test-drive/internal/model"
	"github.com/ydjemai93/test-drive/internal/repository"
	"github.com/ydjemai93/test-drive/internal/worker"
	"github.com/ydjemai93/test-drive/pkg/logger"
	"gorm.io/gorm"
)

type CallHandler struct {
	calls      *repository.CallRepository
	dispatcher dispatch.Dispatcher
}

func NewCallHandler(db *gorm.DB, dispatcher dispatch.Dispatcher) *CallHandler {
	return &CallHandler{
		calls:      repository.NewCallRepository(db),
		dispatcher: dispatcher,
	}
}

// CreateCall accepts an outbound call request, persists the attempt and
// hands it to the dispatcher. The call itself runs asynchronously; the
// response carries the job id to poll or stream against.
func (h *CallHandler) CreateCall(c *gin.Context) {
	var req agent.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.PhoneNumber == "" && config.AppConfig.SIP.FallbackPhoneNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber is required"})
		return
	}

	cfg := config.AppConfig
	if cfg.LiveKit.URL == "" || cfg.LiveKit.APIKey == "" || cfg.LiveKit.APISecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "LiveKit is not configured"})
		return
	}
	if cfg.SIP.OutboundTrunkID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "SIP outbound trunk is not configured"})
		return
	}

	metadata, err := json.Marshal(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode metadata"})
		return
	}

	jobID := uuid.NewString()
	roomName := "call-" + jobID[:8]

	rec := &model.CallRecord{
		JobID:       jobID,
		RoomName:    roomName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		TransferTo:  req.TransferTo,
		Metadata:    string(metadata),
		Status:      model.CallStatusQueued,
	}
	if err := h.calls.Create(rec); err != nil {
		logger.Log.Errorf("Failed to create call record: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create call record"})
		return
	}

	job := agent.Job{ID: jobID, RoomName: roomName, Metadata: string(metadata)}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()
	if err := h.dispatcher.Dispatch(ctx, job); err != nil {
		rec.Status = model.CallStatusFailed
		rec.Error = err.Error()
		if serr := h.calls.Save(rec); serr != nil {
			logger.Log.Errorf("Failed to mark call %s failed: %v", jobID, serr)
		}
		if errors.Is(err, worker.ErrQueueFull) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Dispatch queue full, try again later"})
			return
		}
		logger.Log.Errorf("Dispatch failed for job %s: %v", jobID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to dispatch call"})
		return
	}

	logger.Log.Infof("Call %s dispatched to %s (room %s)", jobID, req.PhoneNumber, roomName)
	c.JSON(http.StatusAccepted, gin.H{
		"job_id":    jobID,
		"room_name": roomName,
		"status":    model.CallStatusQueued,
	})
}

func (h *CallHandler) ListCalls(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	status := c.Query("status")

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	calls, total, err := h.calls.List(status, limit, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  calls,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *CallHandler) GetCall(c *gin.Context) {
	rec, err := h.calls.FindByJobID(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Call not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
