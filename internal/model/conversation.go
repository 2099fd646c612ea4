// Package model はドメインモデルを定義する。
package model

import "time"

// Conversation は会話を表す。
// ダイレクト会話（IsGroup=false）は参加者がちょうど2人でタイトルなし、
// 順序なしペアごとに1件のみ存在する（direct_keyの一意制約）。
// グループ会話は参加者2人以上で任意のタイトルを持てる。
// 参加者集合は作成後に変更されない。
type Conversation struct {
	ID           string
	IsGroup      bool
	Title        string // 空文字はタイトルなしを表す
	CreatedAt    time.Time
	Participants []User
}

// HasParticipant は指定ユーザーが会話の参加者かどうかを返す。
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}
