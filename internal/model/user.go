// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Googleサインインの初回成功時に作成され、以降のログインでは
// LastLoginAtのみが更新される。このコアからは削除されない。
type User struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string // 空文字はアバター未設定を表す
	LastLoginAt time.Time
	CreatedAt   time.Time
}
