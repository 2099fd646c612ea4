package auth

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

// GoogleProfile は検証済みのGoogle IDトークンから得たプロフィール。
type GoogleProfile struct {
	Email   string
	Name    string
	Picture string // 空文字はアバターなし
}

// IdentityVerifier は外部IDトークンの検証インターフェース。
// このコアはproof文字列の形式を関知しない。
type IdentityVerifier interface {
	// Verify はIDトークンを検証し、プロフィールを返す。
	Verify(ctx context.Context, idToken string) (*GoogleProfile, error)
}

// GoogleVerifier はGoogleのIDトークンを検証するIdentityVerifier実装。
// audienceにはこのアプリケーションのクライアントIDを要求する。
type GoogleVerifier struct {
	clientID string
}

// NewGoogleVerifier はGoogleVerifierを生成する。
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

// Verify はGoogle IDトークンの署名・有効期限・audienceを検証する。
// 表示名が無い場合はメールアドレスのローカル部を表示名とする。
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleProfile, error) {
	payload, err := idtoken.Validate(ctx, idToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate google id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("empty email in google id token")
	}

	name, _ := payload.Claims["name"].(string)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	picture, _ := payload.Claims["picture"].(string)

	return &GoogleProfile{
		Email:   email,
		Name:    name,
		Picture: picture,
	}, nil
}

// compile-time interface check
var _ IdentityVerifier = (*GoogleVerifier)(nil)
