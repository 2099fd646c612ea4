// Package model はドメインモデルを定義する。
package model

import "time"

// QrToken はユーザーと1対1で対応するQRケーパビリティトークンを表す。
// 推測不能なトークン文字列を保持し、スキャン経由の友達申請で
// 対象ユーザーの特定に使われる。現行設計ではローテーションも失効もしない。
type QrToken struct {
	UserID    string
	Token     string
	CreatedAt time.Time
}
