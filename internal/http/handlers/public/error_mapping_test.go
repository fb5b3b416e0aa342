package public

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/makerplace/makerplace/internal/http/response"
	"github.com/makerplace/makerplace/internal/service"

	"github.com/gin-gonic/gin"
)

func TestRespondWithMappedErrorSentinel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondWithMappedError(c, fmt.Errorf("resolve: %w", service.ErrDealExpired), dealResolveErrorRules, response.CodeInternal, "查询失败")

	var resp struct {
		StatusCode int    `json:"status_code"`
		Msg        string `json:"msg"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("status_code want %d got %d", response.CodeBadRequest, resp.StatusCode)
	}
	if resp.Msg != service.ErrDealExpired.Error() {
		t.Fatalf("msg want %q got %q", service.ErrDealExpired.Error(), resp.Msg)
	}
}

func TestRespondWithMappedErrorInsufficientBalancePayload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := &service.InsufficientBalanceError{AvailableCents: 300, RequestedCents: 500}
	respondWithMappedError(c, fmt.Errorf("debit: %w", err), orderCreateErrorRules, response.CodeInternal, "下单失败")

	var resp struct {
		StatusCode int `json:"status_code"`
		Data       struct {
			AvailableCents int64 `json:"available_cents"`
			RequestedCents int64 `json:"requested_cents"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("status_code want %d got %d", response.CodeBadRequest, resp.StatusCode)
	}
	if resp.Data.AvailableCents != 300 || resp.Data.RequestedCents != 500 {
		t.Fatalf("payload want 300/500 got %d/%d", resp.Data.AvailableCents, resp.Data.RequestedCents)
	}
}

func TestRespondWithMappedErrorFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondWithMappedError(c, fmt.Errorf("db connection lost"), dealResolveErrorRules, response.CodeInternal, "查询失败")

	var resp struct {
		StatusCode int    `json:"status_code"`
		Msg        string `json:"msg"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != response.CodeInternal {
		t.Fatalf("status_code want %d got %d", response.CodeInternal, resp.StatusCode)
	}
	if resp.Msg != "查询失败" {
		t.Fatalf("msg want fallback got %q", resp.Msg)
	}
}
