// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/tomolink/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// emailの一意制約に違反した場合はErrUniqueViolationを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateLastLogin は最終ログイン時刻を現在時刻に更新する。
	UpdateLastLogin(ctx context.Context, id string) error

	// FindExistingIDs は指定IDのうち実在するユーザーIDの集合を返す。
	FindExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// RefreshTokenRepository はリフレッシュトークンの永続化インターフェース。
type RefreshTokenRepository interface {
	// Create はリフレッシュトークンレコードを作成する。
	Create(ctx context.Context, token *model.RefreshToken) error

	// FindByToken はトークン文字列でレコードを検索する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)

	// Rotate は提示されたトークンの失効と後継トークンの作成を
	// 単一トランザクションで実行する。提示トークンがすでに失効済み、
	// または存在しない場合はErrTokenRotatedを返し、何も書き込まない。
	// 同一トークンに対する並行ローテーションは必ず一方だけが成功する。
	Rotate(ctx context.Context, presentedToken string, next *model.RefreshToken) error
}

// QrTokenRepository はQRケーパビリティトークンの永続化インターフェース。
type QrTokenRepository interface {
	// FindByUserID は指定ユーザーのQRトークンを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.QrToken, error)

	// FindByToken はトークン文字列でレコードを検索する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.QrToken, error)

	// Create はQRトークンを作成する。
	// user_idまたはtokenの一意制約に違反した場合はErrUniqueViolationを返す。
	Create(ctx context.Context, qr *model.QrToken) error
}

// PendingRequest は申請中の友達関係と相手側プロフィールの組。
// 受信(incoming)ではCounterpartは申請者、送信(outgoing)では宛先となる。
type PendingRequest struct {
	model.Friendship
	Counterpart model.User
}

// FriendshipRepository は友達関係の永続化インターフェース。
type FriendshipRepository interface {
	// FindByID は指定IDの友達関係を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Friendship, error)

	// FindBetween は2ユーザー間の友達関係を方向を問わず検索する。
	// 見つからない場合はnilを返す。
	FindBetween(ctx context.Context, userID, otherUserID string) (*model.Friendship, error)

	// Create は友達関係を作成する。
	// 同一ペアの行がすでに存在する場合（pair_keyの一意制約違反）は
	// ErrUniqueViolationを返す。
	Create(ctx context.Context, friendship *model.Friendship) error

	// UpdateStatus は友達関係の状態を更新する。
	UpdateStatus(ctx context.Context, id string, status model.FriendshipStatus) error

	// Overwrite は方向と状態をまとめて上書きする。block用。
	Overwrite(ctx context.Context, id, requesterID, addresseeID string, status model.FriendshipStatus) error

	// Delete は指定IDの友達関係を削除する。rejectで行ごと削除するために使う。
	Delete(ctx context.Context, id string) error

	// ListFriends は指定ユーザーのACCEPTEDな関係の相手側ユーザー一覧を返す。
	ListFriends(ctx context.Context, userID string) ([]model.User, error)

	// ListPendingIncoming は指定ユーザーが宛先のPENDINGな申請一覧を返す。
	ListPendingIncoming(ctx context.Context, userID string) ([]PendingRequest, error)

	// ListPendingOutgoing は指定ユーザーが申請者のPENDINGな申請一覧を返す。
	ListPendingOutgoing(ctx context.Context, userID string) ([]PendingRequest, error)
}

// ConversationRepository は会話の永続化インターフェース。
type ConversationRepository interface {
	// FindByID は指定IDの会話を参加者付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Conversation, error)

	// FindDirectBetween は2ユーザー間のダイレクト会話を検索する。
	// 見つからない場合はnilを返す。
	FindDirectBetween(ctx context.Context, userID, otherUserID string) (*model.Conversation, error)

	// CreateDirect はダイレクト会話と2参加者を単一トランザクションで作成する。
	// 同一ペアのダイレクト会話がすでに存在する場合（direct_keyの一意制約違反）は
	// ErrUniqueViolationを返し、何も書き込まない。
	CreateDirect(ctx context.Context, conv *model.Conversation, userID, otherUserID string) error

	// CreateGroup はグループ会話と全参加者を単一トランザクションで作成する。
	CreateGroup(ctx context.Context, conv *model.Conversation, memberIDs []string) error

	// ListByUserID は指定ユーザーが参加する会話を作成日時の新しい順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Conversation, error)
}
