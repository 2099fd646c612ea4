// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, friend, conversation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidToken         = "INVALID_TOKEN"
	ErrCodeInvalidGoogleToken   = "INVALID_GOOGLE_TOKEN"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeSelfFriendRequest    = "SELF_FRIEND_REQUEST"
	ErrCodeSelfBlock            = "SELF_BLOCK"
	ErrCodeSelfConversation     = "SELF_CONVERSATION"
	ErrCodeAlreadyFriends       = "ALREADY_FRIENDS"
	ErrCodeUserBlocked          = "USER_BLOCKED"
	ErrCodeRequestPending       = "REQUEST_PENDING"
	ErrCodeRequestNotPending    = "REQUEST_NOT_PENDING"
	ErrCodeNotAddressee         = "NOT_ADDRESSEE"
	ErrCodeFriendshipNotFound   = "FRIENDSHIP_NOT_FOUND"
	ErrCodeQrTokenNotFound      = "QR_TOKEN_NOT_FOUND"
	ErrCodeGroupTooSmall        = "GROUP_TOO_SMALL"
	ErrCodeMembersNotFound      = "MEMBERS_NOT_FOUND"
	ErrCodeConversationNotFound = "CONVERSATION_NOT_FOUND"
	ErrCodeNotParticipant       = "NOT_PARTICIPANT"
)

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
// 署名不正・期限切れ・失効済みのいずれでも同一のメッセージを返し、
// どの検証に失敗したかを外部に漏らさない。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "トークンが無効です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewInvalidGoogleTokenError はGoogle IDトークン検証失敗エラーを生成する。
func NewInvalidGoogleTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidGoogleToken,
		Message:  "Googleトークンが無効です。",
		Category: "auth",
		Action:   "Googleサインインをやり直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewSelfFriendRequestError は自分自身への友達申請エラーを生成する。
func NewSelfFriendRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfFriendRequest,
		Message:  "自分自身に友達申請は送れません。",
		Category: "validation",
		Action:   "別のユーザーを指定してください。",
	}
}

// NewSelfBlockError は自分自身へのブロックエラーを生成する。
func NewSelfBlockError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfBlock,
		Message:  "自分自身はブロックできません。",
		Category: "validation",
		Action:   "別のユーザーを指定してください。",
	}
}

// NewSelfConversationError は自分自身との会話作成エラーを生成する。
func NewSelfConversationError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfConversation,
		Message:  "自分自身とのダイレクト会話は作成できません。",
		Category: "validation",
		Action:   "別のユーザーを指定してください。",
	}
}

// NewAlreadyFriendsError はすでに友達である場合のエラーを生成する。
func NewAlreadyFriendsError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFriends,
		Message:  "すでに友達です。",
		Category: "friend",
		Action:   "友達一覧を確認してください。",
	}
}

// NewUserBlockedError はブロック関係があるペアへの申請エラーを生成する。
func NewUserBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeUserBlocked,
		Message:  "ブロック中の相手には友達申請を送れません。",
		Category: "friend",
		Action:   "相手との関係を確認してください。",
	}
}

// NewRequestPendingError はすでに申請中である場合のエラーを生成する。
// どちらの側が先に申請したかに関わらず同一のエラーとなる。
func NewRequestPendingError() *APIError {
	return &APIError{
		Code:     ErrCodeRequestPending,
		Message:  "すでに友達申請が申請中です。",
		Category: "friend",
		Action:   "申請一覧を確認してください。",
	}
}

// NewRequestNotPendingError は申請中でないリンクへのaccept/rejectエラーを生成する。
func NewRequestNotPendingError() *APIError {
	return &APIError{
		Code:     ErrCodeRequestNotPending,
		Message:  "この友達申請は申請中ではありません。",
		Category: "friend",
		Action:   "申請一覧を確認してください。",
	}
}

// NewNotAddresseeError は受信側以外によるaccept/rejectエラーを生成する。
func NewNotAddresseeError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAddressee,
		Message:  "この友達申請の受信者ではありません。",
		Category: "friend",
		Action:   "自分宛ての申請のみ応答できます。",
	}
}

// NewFriendshipNotFoundError は友達関係が見つからない場合のエラーを生成する。
func NewFriendshipNotFoundError(friendshipID string) *APIError {
	return &APIError{
		Code:     ErrCodeFriendshipNotFound,
		Message:  fmt.Sprintf("指定された友達申請が見つかりません: %s", friendshipID),
		Category: "friend",
		Action:   "申請IDを確認してください。",
	}
}

// NewQrTokenNotFoundError は解決できないQRトークンのエラーを生成する。
func NewQrTokenNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeQrTokenNotFound,
		Message:  "QRトークンが無効です。",
		Category: "friend",
		Action:   "QRコードを再取得してもらってください。",
	}
}

// NewGroupTooSmallError はグループ会話の人数不足エラーを生成する。
func NewGroupTooSmallError() *APIError {
	return &APIError{
		Code:     ErrCodeGroupTooSmall,
		Message:  "グループ会話には2人以上のメンバーが必要です。",
		Category: "validation",
		Action:   "メンバーを追加してください。",
	}
}

// NewMembersNotFoundError は存在しないメンバーを含むグループ作成エラーを生成する。
// 見つからなかった全ユーザーIDをメッセージに含める。
func NewMembersNotFoundError(missingIDs []string) *APIError {
	return &APIError{
		Code:     ErrCodeMembersNotFound,
		Message:  fmt.Sprintf("存在しないメンバーが含まれています: %s", strings.Join(missingIDs, ", ")),
		Category: "conversation",
		Action:   "メンバーのユーザーIDを確認してください。",
	}
}

// NewConversationNotFoundError は会話が見つからない場合のエラーを生成する。
func NewConversationNotFoundError(conversationID string) *APIError {
	return &APIError{
		Code:     ErrCodeConversationNotFound,
		Message:  fmt.Sprintf("指定された会話が見つかりません: %s", conversationID),
		Category: "conversation",
		Action:   "会話IDを確認してください。",
	}
}

// NewNotParticipantError は参加していない会話への参照エラーを生成する。
func NewNotParticipantError() *APIError {
	return &APIError{
		Code:     ErrCodeNotParticipant,
		Message:  "この会話の参加者ではありません。",
		Category: "conversation",
		Action:   "参加している会話のみ閲覧できます。",
	}
}
