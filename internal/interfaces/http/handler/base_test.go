package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/erp/invoicing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testActor() shared.AuthContext {
	return shared.AuthContext{
		TenantID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		UserID:   uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		Username: "ada@example.com",
	}
}

// withActor stands in for JWTAuth
func withActor(actor shared.AuthContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.AuthContextKey, actor)
		c.Next()
	}
}

func newTestContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestRespond(t *testing.T) {
	c, w := newTestContext(http.MethodPost, "/")
	respond(c, http.StatusCreated, gin.H{"invoice_number": "INV-2024-00001"})

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)

	c, w = newTestContext(http.MethodGet, "/")
	respondPage(c, []string{"a", "b"}, 45, 2, 20)
	resp = decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestCurrentActor(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/")
	_, ok := currentActor(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, decodeResponse(t, w).Error.Code)

	c, _ = newTestContext(http.MethodGet, "/")
	c.Set(middleware.AuthContextKey, testActor())
	actor, ok := currentActor(c)
	assert.True(t, ok)
	assert.Equal(t, testActor(), actor)
}

func TestPathID(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	_, ok := pathID(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "id", resp.Error.Details[0].Field)
	assert.Equal(t, "not-a-uuid", resp.Error.Details[0].Value)

	id := uuid.New()
	c, _ = newTestContext(http.MethodGet, "/")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := pathID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestFail(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not found", shared.NewDomainError("NOT_FOUND", "Invoice not found"), http.StatusNotFound, dto.ErrCodeNotFound, "Invoice not found"},
		{"wrapped domain error", fmt.Errorf("load: %w", shared.ErrConcurrencyConflict), http.StatusConflict, dto.ErrCodeConcurrencyConflict, shared.ErrConcurrencyConflict.Message},
		{"insufficient stock", shared.NewDomainError("INSUFFICIENT_STOCK", "Only 5 Steel Beam in stock"), http.StatusUnprocessableEntity, dto.ErrCodeInsufficientStock, "Only 5 Steel Beam in stock"},
		{"unknown table", shared.NewDomainError("UNKNOWN_TABLE", "No table named ledgers"), http.StatusNotFound, dto.ErrCodeNotFound, "No table named ledgers"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, dto.ErrCodeTimeout, "Request timed out"},
		{"plain error hides details", fmt.Errorf("pq: connection refused"), http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "/")
			c.Set(middleware.RequestIDKey, "req-42")

			fail(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
			assert.Equal(t, "req-42", resp.Error.RequestID)
		})
	}
}

func TestFail_FieldDetails(t *testing.T) {
	c, w := newTestContext(http.MethodPost, "/")

	fail(c, shared.NewDomainError("INVALID_DUE_DATE", "Due date must not precede issue date"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "due_date", resp.Error.Details[0].Field)
}

func TestFail_NilAndCanceled(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/")
	fail(c, nil)
	assert.Empty(t, w.Body.String())

	c, w = newTestContext(http.MethodGet, "/")
	fail(c, fmt.Errorf("scan: %w", context.Canceled))
	c.Writer.WriteHeaderNow()
	assert.Equal(t, statusClientClosedRequest, w.Code)
	assert.Empty(t, w.Body.String())
}
