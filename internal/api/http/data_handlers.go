package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/metricsvc/internal/domain/datastore"
	"github.com/GriffinCanCode/metricsvc/internal/shared/utils"
)

// dataRequest is the body of POST /data. Timestamp is optional Unix seconds.
type dataRequest struct {
	Key       string   `json:"key"`
	Value     any      `json:"value"`
	Timestamp *float64 `json:"timestamp,omitempty"`
}

// itemView is a stored item as the data endpoints render it, with times in
// Unix seconds.
type itemView struct {
	Key       string  `json:"key"`
	Value     any     `json:"value"`
	Timestamp float64 `json:"timestamp"`
	CreatedAt float64 `json:"created_at"`
}

func newItemView(item datastore.Item) itemView {
	return itemView{
		Key:       item.Key,
		Value:     item.Value,
		Timestamp: unixSeconds(item.Timestamp),
		CreatedAt: unixSeconds(item.CreatedAt),
	}
}

// CreateData stores one item
func (h *Handlers) CreateData(c *gin.Context) {
	limit := h.bodyLimit.MaxSize()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(limit))

	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"message": fmt.Sprintf("Request body exceeds %d bytes", limit),
			})
			return
		}
		h.badRequest(c, "Invalid request: "+err.Error())
		return
	}

	var req dataRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		h.badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := utils.ValidateKey(req.Key); err != nil {
		h.badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := utils.ValidateJSONDepth(req.Value, utils.MaxValueDepth); err != nil {
		h.badRequest(c, "Invalid request: "+err.Error())
		return
	}

	var ts time.Time
	if req.Timestamp != nil {
		sec, frac := math.Modf(*req.Timestamp)
		ts = time.Unix(int64(sec), int64(math.Round(frac*float64(time.Second))))
	}

	item, err := h.store.Put(req.Key, req.Value, ts)
	if err != nil {
		if errors.Is(err, datastore.ErrEmptyKey) {
			h.badRequest(c, "Invalid request: "+err.Error())
			return
		}
		h.logger.Error("Failed to store data", zap.String("key", req.Key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Error processing data: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Data stored successfully for key: " + item.Key,
		"data": gin.H{
			"key":       item.Key,
			"stored_at": unixSeconds(item.CreatedAt),
		},
	})
}

// ListData returns every stored item keyed by its key
func (h *Handlers) ListData(c *gin.Context) {
	items := h.store.List()
	byKey := make(map[string]itemView, len(items))
	for _, item := range items {
		byKey[item.Key] = newItemView(item)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Data retrieved successfully",
		"data": gin.H{
			"items":        byKey,
			"count":        len(items),
			"retrieved_at": h.timestamp(),
		},
	})
}

// GetData returns one item
func (h *Handlers) GetData(c *gin.Context) {
	key := c.Param("key")

	item, err := h.store.Get(key)
	if err != nil {
		h.notFound(c, key)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Data retrieved successfully for key: " + key,
		"data":    newItemView(item),
	})
}

// DeleteData removes one item and returns it
func (h *Handlers) DeleteData(c *gin.Context) {
	key := c.Param("key")

	item, err := h.store.Delete(key)
	if err != nil {
		h.notFound(c, key)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Data deleted successfully for key: " + key,
		"data": gin.H{
			"deleted_item": newItemView(item),
			"deleted_at":   h.timestamp(),
		},
	})
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": msg,
	})
}

func (h *Handlers) notFound(c *gin.Context, key string) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"message": "Data not found for key: " + key,
	})
}
