package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/tomolink/internal/middleware"
	"github.com/hitoshi/tomolink/internal/qr"
)

// QrServiceInterface はQRハンドラーが必要とするサービスインターフェース。
type QrServiceInterface interface {
	// GetOrCreate は指定ユーザーのQRトークンを返す。未発行なら新規生成する。
	GetOrCreate(ctx context.Context, userID string) (*qr.MyQr, error)
}

// QrHandler はQRコード友達追加のHTTPハンドラー。
type QrHandler struct {
	service QrServiceInterface
}

// NewQrHandler はQrHandlerを生成する。
func NewQrHandler(service QrServiceInterface) *QrHandler {
	return &QrHandler{service: service}
}

// myQrResponse は自分のQRトークンのレスポンス。
type myQrResponse struct {
	QrToken  string `json:"qr_token"`
	DeepLink string `json:"deep_link"`
}

// MyQr は自分のQRトークンとディープリンクを返す。
// GET /api/qr/my
func (h *QrHandler) MyQr(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	myQr, err := h.service.GetOrCreate(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(myQrResponse{
		QrToken:  myQr.Token,
		DeepLink: myQr.DeepLink,
	})
}
