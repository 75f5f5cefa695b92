package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/predictarena-go/internal/middleware"
	"github.com/irfndi/predictarena-go/internal/models"
)

// ContestAPI is the engine surface the HTTP layer calls.
type ContestAPI interface {
	GetCurrentContest(ctx context.Context) (*models.ContestResponse, error)
	GetFeaturedStocksWithPrices(ctx context.Context) ([]models.StockWithQuote, error)
	SubmitPrediction(ctx context.Context, req models.SubmitPredictionRequest) (*models.Prediction, error)
	GetUserPredictions(ctx context.Context, contestID, userID string) ([]models.Prediction, error)
	ResolveContest(ctx context.Context, contestID string, overrides map[string]decimal.Decimal) (*models.ResolveContestResponse, error)
	GenerateHousePredictions(ctx context.Context, contestID string) ([]models.HousePredictionResult, error)
	GetLeaderboard(ctx context.Context, contestID string, limit int) ([]models.LeaderboardEntry, error)
	GetLeaderboardEntry(ctx context.Context, contestID, userID string) (*models.LeaderboardEntry, error)
	GetHousePrediction(ctx context.Context, contestID, stockID string) (*models.Prediction, error)
	GetStockStats(ctx context.Context, contestID, stockID string) (*models.StockStats, error)
	GetStockHistory(ctx context.Context, symbol, interval, rng string) (*models.StockHistoryResponse, error)
}

// ContestHandler serves contest, prediction and leaderboard endpoints.
type ContestHandler struct {
	contests ContestAPI
	logger   *logrus.Logger
}

func NewContestHandler(contests ContestAPI, logger *logrus.Logger) *ContestHandler {
	return &ContestHandler{contests: contests, logger: logger}
}

// GetCurrentContest handles GET /api/v1/contests/current.
func (h *ContestHandler) GetCurrentContest(c *gin.Context) {
	contest, err := h.contests.GetCurrentContest(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contest)
}

// GetFeaturedStocks handles GET /api/v1/stocks/featured.
func (h *ContestHandler) GetFeaturedStocks(c *gin.Context) {
	stocks, err := h.contests.GetFeaturedStocksWithPrices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stocks": stocks, "total": len(stocks)})
}

// SubmitPrediction handles POST /api/v1/predictions for the authenticated
// participant.
func (h *ContestHandler) SubmitPrediction(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.SubmitPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid prediction payload: "+err.Error())
		return
	}
	req.UserID = userID

	prediction, err := h.contests.SubmitPrediction(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.AddSpanAttribute(c, "contest.id", prediction.ContestID)
	h.logger.WithFields(logrus.Fields{
		"prediction_id": prediction.ID,
		"contest_id":    prediction.ContestID,
		"stock_id":      prediction.StockID,
		"user_id":       userID,
	}).Info("Prediction submitted")

	c.JSON(http.StatusCreated, prediction)
}

// GetMyPredictions handles GET /api/v1/contests/:id/predictions/me.
func (h *ContestHandler) GetMyPredictions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	predictions, err := h.contests.GetUserPredictions(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": predictions, "total": len(predictions)})
}

// GetLeaderboard handles GET /api/v1/contests/:id/leaderboard?limit=N.
func (h *ContestHandler) GetLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondBadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	contestID := c.Param("id")
	entries, err := h.contests.GetLeaderboard(c.Request.Context(), contestID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contest_id": contestID, "entries": entries, "total": len(entries)})
}

// GetMyLeaderboardEntry handles GET /api/v1/contests/:id/leaderboard/me.
func (h *ContestHandler) GetMyLeaderboardEntry(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	entry, err := h.contests.GetLeaderboardEntry(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetHousePrediction handles GET /api/v1/contests/:id/stocks/:stockId/house-prediction.
func (h *ContestHandler) GetHousePrediction(c *gin.Context) {
	prediction, err := h.contests.GetHousePrediction(c.Request.Context(), c.Param("id"), c.Param("stockId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prediction)
}

// GetStockStats handles GET /api/v1/contests/:id/stocks/:stockId/stats.
func (h *ContestHandler) GetStockStats(c *gin.Context) {
	stats, err := h.contests.GetStockStats(c.Request.Context(), c.Param("id"), c.Param("stockId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetStockHistory handles GET /api/v1/stocks/:symbol/history.
func (h *ContestHandler) GetStockHistory(c *gin.Context) {
	history, err := h.contests.GetStockHistory(c.Request.Context(), c.Param("symbol"), c.Query("interval"), c.Query("range"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// ResolveContest handles POST /api/v1/admin/contests/:id/resolve. The body
// is optional and may carry realized prices by stock id.
func (h *ContestHandler) ResolveContest(c *gin.Context) {
	var req models.ResolveContestRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid resolution payload: "+err.Error())
			return
		}
	}

	contestID := c.Param("id")
	middleware.AddSpanAttribute(c, "contest.id", contestID)

	resp, err := h.contests.ResolveContest(c.Request.Context(), contestID, req.Prices)
	if err != nil {
		h.logger.WithError(err).WithField("contest_id", contestID).Warn("Contest resolution failed")
		respondError(c, err)
		return
	}

	middleware.AddSpanAttribute(c, "contest.predictions_resolved", resp.PredictionsResolved)
	c.JSON(http.StatusOK, resp)
}

// GenerateHousePredictions handles POST /api/v1/admin/contests/:id/house-predictions.
func (h *ContestHandler) GenerateHousePredictions(c *gin.Context) {
	contestID := c.Param("id")
	results, err := h.contests.GenerateHousePredictions(c.Request.Context(), contestID)
	if err != nil {
		respondError(c, err)
		return
	}

	recorded := 0
	for _, r := range results {
		if r.Recorded {
			recorded++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"contest_id": contestID,
		"results":    results,
		"recorded":   recorded,
		"total":      len(results),
	})
}
