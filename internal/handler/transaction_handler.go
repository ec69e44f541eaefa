package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pedrohpiress/banktransaction-queue/internal/events"
	"github.com/pedrohpiress/banktransaction-queue/internal/middleware"
	"github.com/pedrohpiress/banktransaction-queue/internal/models"
)

// TransactionPublisher sends one accepted transaction to the broker.
type TransactionPublisher interface {
	Publish(ctx context.Context, tx models.Transaction) error
}

// MaxBodyBytes bounds the size of a submitted transaction.
const MaxBodyBytes = 1 << 20

// RecentLog records transactions once they are published.
type RecentLog interface {
	Add(ctx context.Context, entry models.RecentTransaction) error
	List(ctx context.Context) ([]models.RecentTransaction, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}

// BrokerStatus reports whether the broker connection is usable.
type BrokerStatus interface {
	Connected() bool
}

type TransactionHandler struct {
	publisher TransactionPublisher
	recent    RecentLog
	broker    BrokerStatus
	now       func() time.Time
}

func NewTransactionHandler(publisher TransactionPublisher, recent RecentLog, broker BrokerStatus) *TransactionHandler {
	return &TransactionHandler{
		publisher: publisher,
		recent:    recent,
		broker:    broker,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitTransaction publishes the request body once and echoes it with 201.
// Failures return a bare status code.
func (h *TransactionHandler) SubmitTransaction(c *gin.Context) {
	tx, err := models.DecodeTransaction(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	if err := h.publisher.Publish(ctx, tx); err != nil {
		log.Printf("request_id=%s failed to publish transaction: %v", middleware.GetRequestID(c), err)
		c.AbortWithStatus(publishFailureStatus(err))
		return
	}

	if err := h.recent.Add(ctx, models.RecentTransaction{Transaction: tx, ReceivedAt: h.now()}); err != nil {
		log.Printf("request_id=%s failed to record recent transaction: %v", middleware.GetRequestID(c), err)
	}

	c.JSON(http.StatusCreated, tx)
}

func publishFailureStatus(err error) int {
	var publishErr *events.PublishError
	if errors.As(err, &publishErr) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	entries, err := h.recent.List(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list recent transactions: %v", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *TransactionHandler) ClearTransactions(c *gin.Context) {
	if err := h.recent.Clear(c.Request.Context()); err != nil {
		log.Printf("Failed to clear recent transactions: %v", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to clear transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Transactions cleared"})
}

func (h *TransactionHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	total, err := h.recent.Count(ctx)
	if err != nil {
		log.Printf("Failed to count recent transactions for status: %v", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to read status")
		return
	}
	entries, err := h.recent.List(ctx)
	if err != nil {
		log.Printf("Failed to read recent transactions for status: %v", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to read status")
		return
	}

	status := models.Status{
		Status:            models.StatusDisconnected,
		TotalTransactions: total,
	}
	if h.broker.Connected() {
		status.Status = models.StatusConnected
	}
	if len(entries) > 0 {
		status.LastTransaction = &entries[0]
	}
	c.JSON(http.StatusOK, status)
}

func (h *TransactionHandler) Health(c *gin.Context) {
	if !h.broker.Connected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterRoutes mounts the bridge's routes on router.
func RegisterRoutes(router gin.IRouter, h *TransactionHandler) {
	router.GET("/health", h.Health)
	router.GET("/status", h.Status)

	transactions := router.Group("/transacoes")
	{
		transactions.POST("", h.SubmitTransaction)
		transactions.GET("", h.ListTransactions)
		transactions.DELETE("", h.ClearTransactions)
	}
}
