// Package model はドメインモデルを定義する。
package model

import "time"

// RefreshToken は永続化されたリフレッシュトークンを表す。
// トークン文字列はグローバルに一意で、一度失効（Revoked=true）すると
// 再利用も復活もできない。アクセストークンは自己完結型のため永続化しない。
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Revoked   bool
	CreatedAt time.Time
}

// TokenPair はアクセストークンとリフレッシュトークンの組を表す。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
