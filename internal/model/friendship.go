// Package model はドメインモデルを定義する。
package model

import "time"

// Friendship は2ユーザー間の関係レコードを表す。
// 順序なしペアごとに最大1行のみ存在し（pair_keyの一意制約）、
// requester/addresseeの方向と状態を保持する。
type Friendship struct {
	ID          string
	RequesterID string
	AddresseeID string
	Status      FriendshipStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FriendshipStatus は友達関係の状態を表す。
type FriendshipStatus string

const (
	// FriendshipPending は申請中（addressee側の応答待ち）。
	FriendshipPending FriendshipStatus = "PENDING"
	// FriendshipAccepted は成立した友達関係。
	FriendshipAccepted FriendshipStatus = "ACCEPTED"
	// FriendshipBlocked はブロック状態。requesterがブロックした側を表す。
	FriendshipBlocked FriendshipStatus = "BLOCKED"
)

// PairKey は順序なしユーザーペアの正規化キーを返す。
// min(id1,id2) + ":" + max(id1,id2) の形式で、
// ペアごとに1行の一意制約をストレージ側で成立させる。
func PairKey(userID1, userID2 string) string {
	if userID1 < userID2 {
		return userID1 + ":" + userID2
	}
	return userID2 + ":" + userID1
}

// OtherUserID は指定ユーザーから見た相手側のユーザーIDを返す。
func (f *Friendship) OtherUserID(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}
