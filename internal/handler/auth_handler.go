// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/tomolink/internal/auth"
	"github.com/hitoshi/tomolink/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// LoginWithGoogle はGoogle IDトークンを検証してトークンペアを発行する。
	LoginWithGoogle(ctx context.Context, idToken string) (*auth.LoginResult, error)
	// Refresh は古いリフレッシュトークンを新しいトークンペアと交換する。
	Refresh(ctx context.Context, oldRefreshToken string) (*model.TokenPair, error)
}

// AuthHandler はサインインとトークンリフレッシュのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// googleLoginRequest はGoogleサインインリクエストのボディ。
type googleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// refreshRequest はトークンリフレッシュリクエストのボディ。
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// loginResponse はサインイン成功時のレスポンス。
type loginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

// tokenPairResponse はトークンリフレッシュ成功時のレスポンス。
type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GoogleLogin はGoogleサインインを処理する。
// POST /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.IDToken == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidGoogleTokenError())
		return
	}

	result, err := h.service.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         toUserResponse(result.User),
	})
}

// Refresh はリフレッシュトークンのローテーションを処理する。
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.RefreshToken == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// userResponse はユーザープロフィールのAPIレスポンス。
type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
	}
}
