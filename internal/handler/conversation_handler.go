package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tomolink/internal/middleware"
	"github.com/hitoshi/tomolink/internal/model"
)

// ConversationServiceInterface は会話ハンドラーが必要とするサービスインターフェース。
type ConversationServiceInterface interface {
	// CreateOrGetDirect は2ユーザー間のダイレクト会話を冪等に返す。
	CreateOrGetDirect(ctx context.Context, currentUserID, targetUserID string) (*model.Conversation, error)
	// CreateGroup はグループ会話を作成する。
	CreateGroup(ctx context.Context, currentUserID, title string, memberIDs []string) (*model.Conversation, error)
	// ListForUser は参加中の会話一覧を返す。
	ListForUser(ctx context.Context, userID string) ([]*model.Conversation, error)
	// GetByID は指定IDの会話を返す。参加者以外からの取得はエラーになる。
	GetByID(ctx context.Context, currentUserID, conversationID string) (*model.Conversation, error)
}

// ConversationHandler は会話のHTTPハンドラー。
type ConversationHandler struct {
	service ConversationServiceInterface
}

// NewConversationHandler はConversationHandlerを生成する。
func NewConversationHandler(service ConversationServiceInterface) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// directConversationBody はダイレクト会話作成リクエストのボディ。
type directConversationBody struct {
	TargetUserID string `json:"target_user_id"`
}

// groupConversationBody はグループ会話作成リクエストのボディ。
type groupConversationBody struct {
	Title     string   `json:"title"`
	MemberIDs []string `json:"member_ids"`
}

// conversationResponse は会話のAPIレスポンス。
type conversationResponse struct {
	ID           string         `json:"id"`
	IsGroup      bool           `json:"is_group"`
	Title        string         `json:"title"`
	CreatedAt    time.Time      `json:"created_at"`
	Participants []userResponse `json:"participants"`
}

// CreateDirect はダイレクト会話の作成または取得を処理する。
// POST /api/conversations/direct
func (h *ConversationHandler) CreateDirect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req directConversationBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.TargetUserID == "" {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}

	conv, err := h.service.CreateOrGetDirect(r.Context(), userID, req.TargetUserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toConversationResponse(conv))
}

// CreateGroup はグループ会話の作成を処理する。
// POST /api/conversations/group
func (h *ConversationHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req groupConversationBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	conv, err := h.service.CreateGroup(r.Context(), userID, req.Title, req.MemberIDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toConversationResponse(conv))
}

// List は参加中の会話一覧を返す。
// GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	convs, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]conversationResponse, 0, len(convs))
	for _, conv := range convs {
		responses = append(responses, toConversationResponse(conv))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]conversationResponse{"conversations": responses})
}

// Get は会話詳細を返す。
// GET /api/conversations/:id
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	conversationID := chi.URLParam(r, "id")

	conv, err := h.service.GetByID(r.Context(), userID, conversationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toConversationResponse(conv))
}

// toConversationResponse はmodel.ConversationからAPIレスポンスに変換する。
func toConversationResponse(conv *model.Conversation) conversationResponse {
	participants := make([]userResponse, 0, len(conv.Participants))
	for i := range conv.Participants {
		participants = append(participants, toUserResponse(&conv.Participants[i]))
	}
	return conversationResponse{
		ID:           conv.ID,
		IsGroup:      conv.IsGroup,
		Title:        conv.Title,
		CreatedAt:    conv.CreatedAt,
		Participants: participants,
	}
}
