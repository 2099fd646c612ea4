package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/tomolink/internal/model"
)

// --- モック ---

type mockVerifier struct {
	verifyFn func(tokenString string) (string, error)
}

func (m *mockVerifier) VerifyAccessToken(tokenString string) (string, error) {
	return m.verifyFn(tokenString)
}

type mockUserFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFn(ctx, id)
}

func okVerifier(userID string) *mockVerifier {
	return &mockVerifier{
		verifyFn: func(tokenString string) (string, error) {
			return userID, nil
		},
	}
}

func okUserFinder(userID string) *mockUserFinder {
	return &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if id == userID {
				return &model.User{ID: id}, nil
			}
			return nil, nil
		},
	}
}

// --- テスト ---

// TestAuthMiddleware_ValidToken は有効なトークンでユーザーIDが
// コンテキストに注入されることを検証する。
func TestAuthMiddleware_ValidToken(t *testing.T) {
	mw := NewAuthMiddleware(okVerifier("user-1"), okUserFinder("user-1"))

	var gotUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/qr/my", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want %q", gotUserID, "user-1")
	}
}

// TestAuthMiddleware_MissingHeader はAuthorizationヘッダーなしの401を検証する。
func TestAuthMiddleware_MissingHeader(t *testing.T) {
	mw := NewAuthMiddleware(okVerifier("user-1"), okUserFinder("user-1"))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("未認証リクエストがハンドラーに到達した")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/qr/my", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestAuthMiddleware_MalformedHeader はBearer形式でないヘッダーの401を検証する。
func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	mw := NewAuthMiddleware(okVerifier("user-1"), okUserFinder("user-1"))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("未認証リクエストがハンドラーに到達した")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/qr/my", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestAuthMiddleware_InvalidToken は検証に失敗したトークンの401を検証する。
func TestAuthMiddleware_InvalidToken(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(tokenString string) (string, error) {
			return "", fmt.Errorf("signature mismatch")
		},
	}
	mw := NewAuthMiddleware(verifier, okUserFinder("user-1"))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("未認証リクエストがハンドラーに到達した")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/qr/my", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestAuthMiddleware_DeletedUser はトークンは有効だがユーザーが
// 存在しない場合の401を検証する。
func TestAuthMiddleware_DeletedUser(t *testing.T) {
	finder := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}
	mw := NewAuthMiddleware(okVerifier("user-1"), finder)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("存在しないユーザーのリクエストがハンドラーに到達した")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/qr/my", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestUserIDFromContext_Missing はコンテキストにユーザーIDがない場合の
// エラーを検証する。
func TestUserIDFromContext_Missing(t *testing.T) {
	_, err := UserIDFromContext(context.Background())
	if err == nil {
		t.Fatal("ユーザーIDのないコンテキストでエラーが返るべき")
	}
}

// TestContextWithUserID は注入と取得の往復を検証する。
func TestContextWithUserID(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-9")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext() がエラーを返した: %v", err)
	}
	if userID != "user-9" {
		t.Errorf("userID = %q, want %q", userID, "user-9")
	}
}
