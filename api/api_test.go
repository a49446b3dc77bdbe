package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"tradejournal/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func serviceErrorResponse(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/trades/exit", nil)

	returnServiceError(err, c)

	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func Test_returnServiceError(t *testing.T) {
	t.Run("over withdrawal is a conflict", func(t *testing.T) {
		err := fmt.Errorf("failed to record exit: %w", domain.OverWithdrawalError{
			Ticker:    "AAPL",
			Requested: decimal.NewFromInt(15),
			Available: decimal.NewFromInt(10),
		})
		code, body := serviceErrorResponse(t, err)
		require.Equal(t, 409, code)
		require.Equal(t, "AAPL", body["ticker"])
		require.Equal(t, "15", body["requested"])
		require.Equal(t, "10", body["available"])
	})

	t.Run("validation", func(t *testing.T) {
		code, _ := serviceErrorResponse(t, domain.ValidationError{Message: "shares must be positive"})
		require.Equal(t, 400, code)
	})

	t.Run("backfill failure names the day to resume from", func(t *testing.T) {
		code, body := serviceErrorResponse(t, domain.BackfillError{
			Date:   "2024-01-03",
			Ticker: "AAPL",
			Err:    errors.New("store unavailable"),
		})
		require.Equal(t, 500, code)
		require.Equal(t, "2024-01-03", body["date"])
	})

	t.Run("anything else", func(t *testing.T) {
		code, body := serviceErrorResponse(t, errors.New("boom"))
		require.Equal(t, 500, code)
		require.Equal(t, "boom", body["error"])
	})
}

func TestApiHandler_authMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ApiHandler{JwtDecodeToken: "shared-secret"}
	router := handler.InitializeRouterEngine()

	for name, header := range map[string]string{
		"no header":    "",
		"not bearer":   "Basic abc",
		"bad token":    "Bearer nope",
		"wrong secret": "Bearer " + signHS256(t, "other", map[string]interface{}{"sub": "u1", "exp": 4102444800}),
		"no subject":   "Bearer " + signHS256(t, "shared-secret", map[string]interface{}{"exp": 4102444800}),
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/stats", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, 401, w.Code)
		})
	}
}
