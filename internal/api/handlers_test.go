package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"infragen/internal/auth"
	"infragen/internal/generate"
	"infragen/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGenerateService implements generate.ServiceInterface for handler tests.
type MockGenerateService struct {
	mock.Mock
}

func (m *MockGenerateService) Generate(ctx context.Context, identity string, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	args := m.Called(ctx, identity, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GenerateResponse), args.Error(1)
}

func (m *MockGenerateService) Limits(ctx context.Context, identity string) (*models.LimitsResponse, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LimitsResponse), args.Error(1)
}

func (m *MockGenerateService) ResetUsage(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func authedRequest(method, target string, body []byte, identity string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if identity != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	return req
}

func TestNewHandlers(t *testing.T) {
	mockService := &MockGenerateService{}
	handlers := NewHandlers(mockService)

	assert.NotNil(t, handlers)
	assert.Equal(t, mockService, handlers.service)
	assert.Nil(t, handlers.minter)

	minter := auth.NewMinter("secret", time.Hour)
	handlers = NewHandlers(mockService, WithMinter(minter))
	assert.Equal(t, minter, handlers.minter)
}

func TestHandlers_Root(t *testing.T) {
	handlers := NewHandlers(&MockGenerateService{})

	rec := httptest.NewRecorder()
	handlers.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp models.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Backend is running!", resp.Message)
}

func TestHandlers_GenerateInfra_Success(t *testing.T) {
	mockService := &MockGenerateService{}
	mockService.On("Generate", mock.Anything, "user-123", mock.MatchedBy(func(req *models.GenerateRequest) bool {
		return req.Prompt == "an s3 bucket" && req.Model == "gemini"
	})).Return(&models.GenerateResponse{
		Model:             "gemini",
		Text:              "kind: Namespace",
		RemainingMessages: 3,
		MaxMessages:       4,
	}, nil)

	handlers := NewHandlers(mockService)

	body, err := json.Marshal(models.GenerateRequest{Prompt: "an s3 bucket", Model: "gemini"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handlers.GenerateInfra(rec, authedRequest(http.MethodPost, "/generate-infra/", body, "user-123"))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "kind: Namespace", resp["gemini"])
	assert.Equal(t, float64(3), resp["remaining_messages"])
	assert.Equal(t, float64(4), resp["max_messages"])

	mockService.AssertExpectations(t)
}

func TestHandlers_GenerateInfra_NoIdentity(t *testing.T) {
	mockService := &MockGenerateService{}
	handlers := NewHandlers(mockService)

	body, _ := json.Marshal(models.GenerateRequest{Prompt: "x", Model: "gemini"})
	rec := httptest.NewRecorder()
	handlers.GenerateInfra(rec, authedRequest(http.MethodPost, "/generate-infra/", body, ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	mockService.AssertNotCalled(t, "Generate")
}

func TestHandlers_GenerateInfra_InvalidJSON(t *testing.T) {
	mockService := &MockGenerateService{}
	handlers := NewHandlers(mockService)

	rec := httptest.NewRecorder()
	handlers.GenerateInfra(rec, authedRequest(http.MethodPost, "/generate-infra/", []byte("not json"), "user-123"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, models.ErrorCodeBadRequest, errResp.Code)
	mockService.AssertNotCalled(t, "Generate")
}

func TestHandlers_GenerateInfra_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "quota exceeded",
			serviceErr: generate.NewQuotaExceededError(4),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   models.ErrorCodeQuotaExceeded,
		},
		{
			name:       "bad request",
			serviceErr: generate.NewBadRequestError("invalid model selected: choose 'deepseek' or 'gemini'", nil),
			wantStatus: http.StatusBadRequest,
			wantCode:   models.ErrorCodeBadRequest,
		},
		{
			name:       "internal error",
			serviceErr: generate.NewInternalError("failed to check quota", nil),
			wantStatus: http.StatusInternalServerError,
			wantCode:   models.ErrorCodeInternalError,
		},
		{
			name:       "unclassified error",
			serviceErr: assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantCode:   models.ErrorCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGenerateService{}
			mockService.On("Generate", mock.Anything, "user-123", mock.Anything).Return(nil, tt.serviceErr)

			handlers := NewHandlers(mockService)

			body, _ := json.Marshal(models.GenerateRequest{Prompt: "x", Model: "gemini"})
			rec := httptest.NewRecorder()
			handlers.GenerateInfra(rec, authedRequest(http.MethodPost, "/generate-infra/", body, "user-123"))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var errResp models.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
			assert.Equal(t, tt.wantCode, errResp.Code)
			assert.False(t, errResp.Timestamp.IsZero())
		})
	}
}

func TestHandlers_UserLimits(t *testing.T) {
	mockService := &MockGenerateService{}
	mockService.On("Limits", mock.Anything, "user-123").Return(&models.LimitsResponse{
		RemainingMessages: 2,
		MaxMessages:       4,
		HasAccess:         true,
	}, nil)

	handlers := NewHandlers(mockService)

	rec := httptest.NewRecorder()
	handlers.UserLimits(rec, authedRequest(http.MethodGet, "/user/limits", nil, "user-123"))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.LimitsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.RemainingMessages)
	assert.Equal(t, 4, resp.MaxMessages)
	assert.True(t, resp.HasAccess)

	mockService.AssertExpectations(t)
}

func TestHandlers_UserLimits_NoIdentity(t *testing.T) {
	handlers := NewHandlers(&MockGenerateService{})

	rec := httptest.NewRecorder()
	handlers.UserLimits(rec, authedRequest(http.MethodGet, "/user/limits", nil, ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlers_HealthCheck(t *testing.T) {
	handlers := NewHandlers(&MockGenerateService{})

	rec := httptest.NewRecorder()
	handlers.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.HealthCheckResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.StatusHealthy, resp.Status)
	assert.Contains(t, resp.Components, "quota")
	assert.Contains(t, resp.Components, "api")
}

func TestHandlers_GenerateToken(t *testing.T) {
	handlers := NewHandlers(&MockGenerateService{}, WithMinter(auth.NewMinter("secret", time.Hour)))

	body, err := json.Marshal(models.TokenRequest{UserID: "user-123"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handlers.GenerateToken(rec, httptest.NewRequest(http.MethodPost, "/test/generate-token", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)

	// The minted token verifies against the same secret.
	identity, err := auth.NewVerifier("secret").Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", identity)
}

func TestHandlers_GenerateToken_NoMinter(t *testing.T) {
	handlers := NewHandlers(&MockGenerateService{})

	body, _ := json.Marshal(models.TokenRequest{UserID: "user-123"})
	rec := httptest.NewRecorder()
	handlers.GenerateToken(rec, httptest.NewRequest(http.MethodPost, "/test/generate-token", bytes.NewReader(body)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_GenerateToken_InvalidBody(t *testing.T) {
	handlers := NewHandlers(&MockGenerateService{}, WithMinter(auth.NewMinter("secret", time.Hour)))

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"missing user id", `{}`},
		{"blank user id", `{"user_id":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handlers.GenerateToken(rec, httptest.NewRequest(http.MethodPost, "/test/generate-token", bytes.NewReader([]byte(tt.body))))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandlers_ResetCounts(t *testing.T) {
	mockService := &MockGenerateService{}
	mockService.On("ResetUsage", mock.Anything).Return(nil)

	handlers := NewHandlers(mockService)

	rec := httptest.NewRecorder()
	handlers.ResetCounts(rec, httptest.NewRequest(http.MethodPost, "/admin/reset-counts", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "All usage counts reset", resp.Message)

	mockService.AssertExpectations(t)
}

func TestHandlers_ResetCounts_ServiceError(t *testing.T) {
	mockService := &MockGenerateService{}
	mockService.On("ResetUsage", mock.Anything).Return(generate.NewInternalError("failed to reset usage", assert.AnError))

	handlers := NewHandlers(mockService)

	rec := httptest.NewRecorder()
	handlers.ResetCounts(rec, httptest.NewRequest(http.MethodPost, "/admin/reset-counts", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
