package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/predictarena-go/internal/api/handlers"
	"github.com/irfndi/predictarena-go/internal/middleware"
	"github.com/irfndi/predictarena-go/internal/models"
)

type stubContests struct {
	submittedBy string
	resolved    string
}

func (s *stubContests) GetCurrentContest(context.Context) (*models.ContestResponse, error) {
	return &models.ContestResponse{ContestPeriod: models.ContestPeriod{ID: "c1"}, State: models.ContestOpen}, nil
}

func (s *stubContests) GetFeaturedStocksWithPrices(context.Context) ([]models.StockWithQuote, error) {
	return []models.StockWithQuote{}, nil
}

func (s *stubContests) SubmitPrediction(_ context.Context, req models.SubmitPredictionRequest) (*models.Prediction, error) {
	s.submittedBy = req.UserID
	return &models.Prediction{ID: "p1", Author: models.HumanAuthor(req.UserID), ContestID: req.ContestID}, nil
}

func (s *stubContests) GetUserPredictions(context.Context, string, string) ([]models.Prediction, error) {
	return []models.Prediction{}, nil
}

func (s *stubContests) ResolveContest(_ context.Context, contestID string, _ map[string]decimal.Decimal) (*models.ResolveContestResponse, error) {
	s.resolved = contestID
	return &models.ResolveContestResponse{ContestID: contestID}, nil
}

func (s *stubContests) GenerateHousePredictions(context.Context, string) ([]models.HousePredictionResult, error) {
	return []models.HousePredictionResult{}, nil
}

func (s *stubContests) GetLeaderboard(context.Context, string, int) ([]models.LeaderboardEntry, error) {
	return []models.LeaderboardEntry{}, nil
}

func (s *stubContests) GetStockHistory(_ context.Context, symbol, _, _ string) (*models.StockHistoryResponse, error) {
	return &models.StockHistoryResponse{Symbol: symbol}, nil
}

func (s *stubContests) GetLeaderboardEntry(_ context.Context, contestID, userID string) (*models.LeaderboardEntry, error) {
	return &models.LeaderboardEntry{ContestID: contestID, UserID: userID, RankPosition: 1}, nil
}

func (s *stubContests) GetHousePrediction(_ context.Context, contestID, stockID string) (*models.Prediction, error) {
	return &models.Prediction{ID: "h1", Author: models.AlgorithmicAuthor("ta-v1"), ContestID: contestID, StockID: stockID}, nil
}

func (s *stubContests) GetStockStats(_ context.Context, contestID, stockID string) (*models.StockStats, error) {
	stats := models.NewStockStats(stockID, contestID, 0, 0, nil)
	return &stats, nil
}

type okChecker struct{}

func (okChecker) HealthCheck(context.Context) error { return nil }

func setupRouter(t *testing.T) (*gin.Engine, *stubContests, *middleware.AuthMiddleware) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	contests := &stubContests{}
	auth := middleware.NewAuthMiddleware("route-secret")
	router := gin.New()
	SetupRoutes(router, Dependencies{
		Contests: handlers.NewContestHandler(contests, logger),
		Health:   handlers.NewHealthHandler(okChecker{}, okChecker{}, "test"),
		Auth:     auth,
		Admin:    middleware.NewAdminMiddleware("admin-key"),
	})
	return router, contests, auth
}

func do(router *gin.Engine, method, path, body string, headers map[string]string) int {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestSetupRoutes_PublicEndpoints(t *testing.T) {
	router, _, _ := setupRouter(t)

	for _, path := range []string{
		"/health",
		"/live",
		"/api/v1/contests/current",
		"/api/v1/contests/c1/leaderboard",
		"/api/v1/stocks/featured",
		"/api/v1/stocks/AAPL/history",
		"/api/v1/contests/c1/stocks/s1/house-prediction",
		"/api/v1/contests/c1/stocks/s1/stats",
	} {
		assert.Equal(t, http.StatusOK, do(router, http.MethodGet, path, "", nil), path)
	}
}

func TestSetupRoutes_ParticipantEndpointsRequireToken(t *testing.T) {
	router, contests, auth := setupRouter(t)
	body := `{"stock_id":"s1","contest_id":"c1","direction":"up","confidence_level":5}`

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/v1/predictions", body, nil))
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/v1/contests/c1/predictions/me", "", nil))
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/v1/contests/c1/leaderboard/me", "", nil))

	token, err := auth.GenerateToken("user-7", time.Hour)
	require.NoError(t, err)
	bearer := map[string]string{"Authorization": "Bearer " + token}

	assert.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/v1/predictions", body, bearer))
	assert.Equal(t, "user-7", contests.submittedBy)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/contests/c1/predictions/me", "", bearer))
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/contests/c1/leaderboard/me", "", bearer))
}

func TestSetupRoutes_AdminEndpointsRequireKey(t *testing.T) {
	router, contests, auth := setupRouter(t)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/v1/admin/contests/c1/resolve", "", nil))

	token, err := auth.GenerateToken("user-7", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/v1/admin/contests/c1/resolve", "",
		map[string]string{"Authorization": "Bearer " + token}))
	assert.Empty(t, contests.resolved)

	key := map[string]string{"X-API-Key": "admin-key"}
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/admin/contests/c1/resolve", "", key))
	assert.Equal(t, "c1", contests.resolved)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/admin/contests/c1/house-predictions", "", key))
}
