package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/tomolink/internal/friendship"
	"github.com/hitoshi/tomolink/internal/middleware"
	"github.com/hitoshi/tomolink/internal/model"
	"github.com/hitoshi/tomolink/internal/repository"
)

// FriendServiceInterface は友達ハンドラーが必要とするサービスインターフェース。
type FriendServiceInterface interface {
	// SendRequest は友達申請を作成する。
	SendRequest(ctx context.Context, currentUserID, targetUserID string) (*model.Friendship, error)
	// SendRequestFromQr はQRトークン経由で友達申請を作成する。
	SendRequestFromQr(ctx context.Context, currentUserID, qrToken string) (*model.Friendship, error)
	// Accept は申請を承認する。
	Accept(ctx context.Context, currentUserID, friendshipID string) (*model.Friendship, error)
	// Reject は申請を拒否し、行ごと削除する。
	Reject(ctx context.Context, currentUserID, friendshipID string) error
	// Block は相手をブロックする。
	Block(ctx context.Context, currentUserID, targetUserID string) (*model.Friendship, error)
	// ListFriends は友達一覧を返す。
	ListFriends(ctx context.Context, userID string) ([]model.User, error)
	// ListPending は受信/送信それぞれの申請一覧を返す。
	ListPending(ctx context.Context, userID string) (*friendship.PendingLists, error)
}

// FriendHandler は友達関係のHTTPハンドラー。
type FriendHandler struct {
	service FriendServiceInterface
}

// NewFriendHandler はFriendHandlerを生成する。
func NewFriendHandler(service FriendServiceInterface) *FriendHandler {
	return &FriendHandler{service: service}
}

// friendRequestBody は友達申請リクエストのボディ。
type friendRequestBody struct {
	TargetUserID string `json:"target_user_id"`
}

// qrFriendRequestBody はQR経由の友達申請リクエストのボディ。
type qrFriendRequestBody struct {
	QrToken string `json:"qr_token"`
}

// friendshipActionBody はaccept/rejectリクエストのボディ。
type friendshipActionBody struct {
	FriendshipID string `json:"friendship_id"`
}

// friendshipResponse は友達関係のAPIレスポンス。
type friendshipResponse struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requester_id"`
	AddresseeID string    `json:"addressee_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// pendingRequestResponse は申請中の関係と相手プロフィールのレスポンス。
type pendingRequestResponse struct {
	friendshipResponse
	Counterpart userResponse `json:"counterpart"`
}

// pendingListsResponse は受信/送信それぞれの申請一覧のレスポンス。
type pendingListsResponse struct {
	Incoming []pendingRequestResponse `json:"incoming"`
	Outgoing []pendingRequestResponse `json:"outgoing"`
}

// SendRequest は友達申請を処理する。
// POST /api/friends/request
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req friendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.TargetUserID == "" {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}

	f, err := h.service.SendRequest(r.Context(), userID, req.TargetUserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toFriendshipResponse(f))
}

// SendRequestFromQr はQRトークン経由の友達申請を処理する。
// POST /api/friends/request-from-qr
func (h *FriendHandler) SendRequestFromQr(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req qrFriendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.QrToken == "" {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewQrTokenNotFoundError())
		return
	}

	f, err := h.service.SendRequestFromQr(r.Context(), userID, req.QrToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toFriendshipResponse(f))
}

// Accept は友達申請の承認を処理する。
// POST /api/friends/accept
func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req friendshipActionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	f, err := h.service.Accept(r.Context(), userID, req.FriendshipID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toFriendshipResponse(f))
}

// Reject は友達申請の拒否を処理する。
// POST /api/friends/reject
func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req friendshipActionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.Reject(r.Context(), userID, req.FriendshipID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Block は相手のブロックを処理する。
// POST /api/friends/block
func (h *FriendHandler) Block(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req friendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.TargetUserID == "" {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}

	f, err := h.service.Block(r.Context(), userID, req.TargetUserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toFriendshipResponse(f))
}

// ListFriends は友達一覧を返す。
// GET /api/friends/list
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	friends, err := h.service.ListFriends(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]userResponse, 0, len(friends))
	for i := range friends {
		responses = append(responses, toUserResponse(&friends[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]userResponse{"friends": responses})
}

// ListPending は受信/送信それぞれの申請一覧を返す。
// GET /api/friends/pending
func (h *FriendHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	lists, err := h.service.ListPending(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pendingListsResponse{
		Incoming: toPendingResponses(lists.Incoming),
		Outgoing: toPendingResponses(lists.Outgoing),
	})
}

// --- ヘルパー関数 ---

// toFriendshipResponse はmodel.FriendshipからAPIレスポンスに変換する。
func toFriendshipResponse(f *model.Friendship) friendshipResponse {
	return friendshipResponse{
		ID:          f.ID,
		RequesterID: f.RequesterID,
		AddresseeID: f.AddresseeID,
		Status:      string(f.Status),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// toPendingResponses は申請一覧をAPIレスポンスに変換する。
func toPendingResponses(requests []repository.PendingRequest) []pendingRequestResponse {
	responses := make([]pendingRequestResponse, 0, len(requests))
	for i := range requests {
		responses = append(responses, pendingRequestResponse{
			friendshipResponse: toFriendshipResponse(&requests[i].Friendship),
			Counterpart:        toUserResponse(&requests[i].Counterpart),
		})
	}
	return responses
}
