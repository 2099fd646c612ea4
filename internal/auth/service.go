package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/tomolink/internal/model"
	"github.com/hitoshi/tomolink/internal/repository"
)

// LoginResult はログイン成功時の結果を表す。
type LoginResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// LoginMetrics はログイン関連メトリクスの収集インターフェース。
type LoginMetrics interface {
	// RecordLogin はログイン成功を記録する。newUserは初回ログインかどうか。
	RecordLogin(newUser bool)
}

// Service はGoogleサインインとトークンリフレッシュのオーケストレーションを提供する。
type Service struct {
	verifier IdentityVerifier
	userRepo repository.UserRepository
	tokens   *TokenService
	metrics  LoginMetrics
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(verifier IdentityVerifier, userRepo repository.UserRepository, tokens *TokenService, metrics LoginMetrics) *Service {
	return &Service{
		verifier: verifier,
		userRepo: userRepo,
		tokens:   tokens,
		metrics:  metrics,
	}
}

// LoginWithGoogle はGoogle IDトークンを検証し、ユーザーの作成または
// 最終ログイン時刻の更新を行い、新しいトークンペアを発行する。
// ユーザー作成はメールアドレスごとに冪等で、ここが唯一の作成経路となる。
// 同一メールアドレスの並行初回ログインはemailの一意制約が決着させ、
// 敗者は勝者のレコードを再読み込みして通常ログインとして続行する。
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*LoginResult, error) {
	profile, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		slog.Warn("google id token verification failed",
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidGoogleTokenError()
	}

	user, newUser, err := s.findOrCreateUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("トークンペアの発行に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLogin(newUser)
	}
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.Bool("new_user", newUser),
	)

	return &LoginResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Refresh は古いリフレッシュトークンを新しいトークンペアと交換する。
func (s *Service) Refresh(ctx context.Context, oldRefreshToken string) (*model.TokenPair, error) {
	return s.tokens.Rotate(ctx, oldRefreshToken)
}

// findOrCreateUser はメールアドレスでユーザーを特定し、
// 未登録なら作成、登録済みなら最終ログイン時刻を更新する。
func (s *Service) findOrCreateUser(ctx context.Context, profile *GoogleProfile) (*model.User, bool, error) {
	user, err := s.userRepo.FindByEmail(ctx, profile.Email)
	if err != nil {
		return nil, false, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}

	if user == nil {
		now := time.Now()
		newUser := &model.User{
			ID:          uuid.New().String(),
			Email:       profile.Email,
			DisplayName: profile.Name,
			AvatarURL:   profile.Picture,
			LastLoginAt: now,
			CreatedAt:   now,
		}

		err := s.userRepo.Create(ctx, newUser)
		if err == nil {
			return newUser, true, nil
		}
		if !errors.Is(err, repository.ErrUniqueViolation) {
			return nil, false, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
		}

		// 並行初回ログインに敗れた: 勝者のレコードを再読み込みする
		user, err = s.userRepo.FindByEmail(ctx, profile.Email)
		if err != nil {
			return nil, false, fmt.Errorf("ユーザーの再読み込みに失敗しました: %w", err)
		}
		if user == nil {
			return nil, false, fmt.Errorf("ユーザー作成の競合後に勝者レコードが見つかりません: %s", profile.Email)
		}
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, false, fmt.Errorf("最終ログイン時刻の更新に失敗しました: %w", err)
	}
	user.LastLoginAt = time.Now()

	return user, false, nil
}
