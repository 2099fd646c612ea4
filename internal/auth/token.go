// Package auth はGoogleサインイン、JWTトークンの発行とローテーションを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hitoshi/tomolink/internal/model"
	"github.com/hitoshi/tomolink/internal/repository"
)

// TokenConfig はトークンサービスの設定。
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration // アクセストークン有効期間（デフォルト: 1日）
	RefreshTTL    time.Duration // リフレッシュトークン有効期間（デフォルト: 30日）
}

// TokenMetrics はトークン関連メトリクスの収集インターフェース。
type TokenMetrics interface {
	// RecordTokenRotation はローテーション成功を記録する。
	RecordTokenRotation()
	// RecordTokenReuseDetected はローテーション済みトークンの再利用検出を記録する。
	RecordTokenReuseDetected()
}

// TokenService はアクセス/リフレッシュトークンの発行・検証・ローテーションを提供する。
// アクセストークンは自己完結型で永続化せず、リフレッシュトークンのみ
// ストアの失効フラグと突き合わせる。
type TokenService struct {
	config    TokenConfig
	tokenRepo repository.RefreshTokenRepository
	metrics   TokenMetrics
}

// NewTokenService はTokenServiceを生成する。metricsはnilでもよい。
func NewTokenService(config TokenConfig, tokenRepo repository.RefreshTokenRepository, metrics TokenMetrics) *TokenService {
	return &TokenService{
		config:    config,
		tokenRepo: tokenRepo,
		metrics:   metrics,
	}
}

// Issue は指定ユーザーの新しいトークンペアを発行する。
// リフレッシュトークンのみ未失効のレコードとして永続化する。
func (s *TokenService) Issue(ctx context.Context, userID string) (*model.TokenPair, error) {
	accessToken, err := signToken(userID, s.config.AccessSecret, s.config.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("アクセストークンの署名に失敗しました: %w", err)
	}

	refreshToken, err := signToken(userID, s.config.RefreshSecret, s.config.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("リフレッシュトークンの署名に失敗しました: %w", err)
	}

	record := &model.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     refreshToken,
		Revoked:   false,
		CreatedAt: time.Now(),
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("リフレッシュトークンの保存に失敗しました: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Rotate は提示されたリフレッシュトークンを検証し、新しいトークンペアと交換する。
// 提示トークンの失効と後継トークンの保存は単一トランザクションで行われ、
// 同一トークンの並行ローテーションは必ず一方だけが成功する。
// 失効済みトークンの提示はローテーション済みトークンの再利用
// （盗難の兆候）として警告ログとメトリクスに記録する。
// 検証失敗はすべて同一のUnauthorizedエラーに集約される。
func (s *TokenService) Rotate(ctx context.Context, presented string) (*model.TokenPair, error) {
	userID, err := verifyToken(presented, s.config.RefreshSecret)
	if err != nil {
		return nil, model.NewInvalidTokenError()
	}

	stored, err := s.tokenRepo.FindByToken(ctx, presented)
	if err != nil {
		return nil, fmt.Errorf("リフレッシュトークンの照会に失敗しました: %w", err)
	}
	if stored == nil {
		return nil, model.NewInvalidTokenError()
	}
	if stored.Revoked {
		slog.Warn("revoked refresh token presented, possible token theft",
			slog.String("user_id", stored.UserID),
		)
		if s.metrics != nil {
			s.metrics.RecordTokenReuseDetected()
		}
		return nil, model.NewInvalidTokenError()
	}

	accessToken, err := signToken(userID, s.config.AccessSecret, s.config.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("アクセストークンの署名に失敗しました: %w", err)
	}
	refreshToken, err := signToken(userID, s.config.RefreshSecret, s.config.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("リフレッシュトークンの署名に失敗しました: %w", err)
	}

	next := &model.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     refreshToken,
		Revoked:   false,
		CreatedAt: time.Now(),
	}
	if err := s.tokenRepo.Rotate(ctx, presented, next); err != nil {
		// 並行ローテーションの敗者: 勝者がすでに提示トークンを失効させた
		if errors.Is(err, repository.ErrTokenRotated) {
			slog.Warn("lost refresh token rotation race",
				slog.String("user_id", stored.UserID),
			)
			return nil, model.NewInvalidTokenError()
		}
		return nil, fmt.Errorf("リフレッシュトークンのローテーションに失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTokenRotation()
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// VerifyAccessToken はアクセストークンの署名と有効期限を検証し、
// サブジェクトのユーザーIDを返す。ストアは参照しない純粋な検証で、
// 失敗理由によらず同一のUnauthorizedエラーを返す。
func (s *TokenService) VerifyAccessToken(tokenString string) (string, error) {
	userID, err := verifyToken(tokenString, s.config.AccessSecret)
	if err != nil {
		return "", model.NewInvalidTokenError()
	}
	return userID, nil
}

// signToken はサブジェクトクレームのみを持つHS256署名のJWTを生成する。
func signToken(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// verifyToken は署名と有効期限を検証し、サブジェクトのユーザーIDを返す。
func verifyToken(tokenString, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}
