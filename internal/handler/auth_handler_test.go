package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/tomolink/internal/auth"
	"github.com/hitoshi/tomolink/internal/model"
)

// --- モック ---

type mockAuthService struct {
	loginFn   func(ctx context.Context, idToken string) (*auth.LoginResult, error)
	refreshFn func(ctx context.Context, oldRefreshToken string) (*model.TokenPair, error)
}

func (m *mockAuthService) LoginWithGoogle(ctx context.Context, idToken string) (*auth.LoginResult, error) {
	return m.loginFn(ctx, idToken)
}

func (m *mockAuthService) Refresh(ctx context.Context, oldRefreshToken string) (*model.TokenPair, error) {
	return m.refreshFn(ctx, oldRefreshToken)
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

// --- テスト ---

// TestAuthHandler_GoogleLogin はサインイン成功時のレスポンスを検証する。
func TestAuthHandler_GoogleLogin(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, idToken string) (*auth.LoginResult, error) {
			if idToken != "valid-id-token" {
				t.Errorf("idToken = %q", idToken)
			}
			return &auth.LoginResult{
				User: &model.User{
					ID:          "user-1",
					Email:       "alice@example.com",
					DisplayName: "Alice",
				},
				AccessToken:  "access-jwt",
				RefreshToken: "refresh-jwt",
			}, nil
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/google",
		strings.NewReader(`{"id_token":"valid-id-token"}`))
	rec := httptest.NewRecorder()

	h.GoogleLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスボディの解析に失敗: %v", err)
	}
	if body.AccessToken != "access-jwt" || body.RefreshToken != "refresh-jwt" {
		t.Error("トークンペアがレスポンスに含まれるべき")
	}
	if body.User.ID != "user-1" || body.User.Email != "alice@example.com" {
		t.Errorf("User = %+v", body.User)
	}
}

// TestAuthHandler_GoogleLogin_InvalidToken は検証失敗時の401を検証する。
func TestAuthHandler_GoogleLogin_InvalidToken(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, idToken string) (*auth.LoginResult, error) {
			return nil, model.NewInvalidGoogleTokenError()
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/google",
		strings.NewReader(`{"id_token":"bad-token"}`))
	rec := httptest.NewRecorder()

	h.GoogleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var body apiErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスボディの解析に失敗: %v", err)
	}
	if body.Code != model.ErrCodeInvalidGoogleToken {
		t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeInvalidGoogleToken)
	}
}

// TestAuthHandler_GoogleLogin_InvalidBody は不正なJSONの400を検証する。
func TestAuthHandler_GoogleLogin_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/google",
		strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	h.GoogleLogin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestAuthHandler_Refresh はローテーション成功時のレスポンスを検証する。
func TestAuthHandler_Refresh(t *testing.T) {
	service := &mockAuthService{
		refreshFn: func(ctx context.Context, oldRefreshToken string) (*model.TokenPair, error) {
			return &model.TokenPair{
				AccessToken:  "new-access",
				RefreshToken: "new-refresh",
			}, nil
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
		strings.NewReader(`{"refresh_token":"old-refresh"}`))
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body tokenPairResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスボディの解析に失敗: %v", err)
	}
	if body.AccessToken != "new-access" || body.RefreshToken != "new-refresh" {
		t.Errorf("body = %+v", body)
	}
}

// TestAuthHandler_Refresh_Rejected はローテーション拒否時の401を検証する。
// 失効済み、未知、署名不正のいずれも同じレスポンスになる。
func TestAuthHandler_Refresh_Rejected(t *testing.T) {
	service := &mockAuthService{
		refreshFn: func(ctx context.Context, oldRefreshToken string) (*model.TokenPair, error) {
			return nil, model.NewInvalidTokenError()
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
		strings.NewReader(`{"refresh_token":"revoked-token"}`))
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestAuthHandler_Refresh_EmptyToken は空のトークンの401を検証する。
func TestAuthHandler_Refresh_EmptyToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
		strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
