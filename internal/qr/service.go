// Package qr はQRコードによる友達追加用ケーパビリティトークンを提供する。
package qr

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/tomolink/internal/model"
	"github.com/hitoshi/tomolink/internal/repository"
)

// tokenBytes はQRトークンの乱数長。hexエンコード後64文字になる。
const tokenBytes = 32

// Service はQRトークンの払い出しと解決を提供する。
// トークンはユーザーごとに1つで、初回取得時に遅延生成される。
type Service struct {
	qrRepo       repository.QrTokenRepository
	deepLinkBase string
}

// NewService はServiceを生成する。
func NewService(qrRepo repository.QrTokenRepository, deepLinkBase string) *Service {
	return &Service{
		qrRepo:       qrRepo,
		deepLinkBase: deepLinkBase,
	}
}

// MyQr はQRトークンとディープリンクの組。
type MyQr struct {
	Token    string
	DeepLink string
}

// GetOrCreate は指定ユーザーのQRトークンを返す。未発行なら新規生成して
// 永続化する。繰り返し呼んでも同じトークンが返る。
// 並行初回取得はuser_idの一意制約が決着させ、敗者は勝者の行を再読み込みする。
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*MyQr, error) {
	qr, err := s.qrRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("QRトークンの取得に失敗しました: %w", err)
	}

	if qr == nil {
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("QRトークンの生成に失敗しました: %w", err)
		}

		qr = &model.QrToken{
			UserID:    userID,
			Token:     token,
			CreatedAt: time.Now(),
		}
		if err := s.qrRepo.Create(ctx, qr); err != nil {
			if !errors.Is(err, repository.ErrUniqueViolation) {
				return nil, fmt.Errorf("QRトークンの保存に失敗しました: %w", err)
			}

			// 並行生成に敗れた: 勝者のトークンを再読み込みする
			qr, err = s.qrRepo.FindByUserID(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("QRトークンの再読み込みに失敗しました: %w", err)
			}
			if qr == nil {
				return nil, fmt.Errorf("QRトークン生成の競合後に勝者レコードが見つかりません: %s", userID)
			}
		}
	}

	return &MyQr{
		Token:    qr.Token,
		DeepLink: s.deepLinkBase + "?token=" + qr.Token,
	}, nil
}

// Resolve はQRトークンを所有者のユーザーIDに解決する。
// 未知のトークンはエラーではなく空文字で返し、呼び出し側が
// ドメインエラーへ変換する。
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	qr, err := s.qrRepo.FindByToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("QRトークンの解決に失敗しました: %w", err)
	}
	if qr == nil {
		return "", nil
	}
	return qr.UserID, nil
}

// generateToken は暗号乱数から推測不能なトークン文字列を生成する。
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
