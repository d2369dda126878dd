package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"StockIntel/internal/apperr"
	"StockIntel/internal/service"
)

type StockHandler struct {
	stockService *service.StockService
}

func NewStockHandler(svc *service.StockService) *StockHandler {
	return &StockHandler{stockService: svc}
}

func (h *StockHandler) ListCompanies(c *gin.Context) {
	companies, err := h.stockService.Companies(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

func (h *StockHandler) GetRecent(c *gin.Context) {
	bars, err := h.stockService.Recent(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bars)
}

func (h *StockHandler) GetSummary(c *gin.Context) {
	summary, err := h.stockService.Summary(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *StockHandler) Compare(c *gin.Context) {
	result, err := h.stockService.Compare(c.Request.Context(), c.Query("symbol1"), c.Query("symbol2"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *StockHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "connected"
	if err := h.stockService.Health(ctx); err != nil {
		dbStatus = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": dbStatus,
	})
}

// writeError renders {"kind": ..., "error": ...} with a status derived from
// the error kind. Errors without a kind are reported as internal.
func writeError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"kind":  "Internal",
			"error": "internal server error",
		})
		return
	}
	c.AbortWithStatusJSON(statusFor(appErr.Kind), gin.H{
		"kind":  string(appErr.Kind),
		"error": appErr.Message,
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.SymbolNotFound:
		return http.StatusNotFound
	case apperr.InsufficientHistory, apperr.ZeroBaselinePrice, apperr.InsufficientAggregateData,
		apperr.InvalidArgument, apperr.UnsupportedDateFormat, apperr.EmptyDateValue:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
