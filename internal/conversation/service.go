// Package conversation はダイレクト/グループ会話の作成と取得を提供する。
// 同一2ユーザー間のダイレクト会話は高々1つで、作成は冪等となる。
package conversation

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

// minGroupParticipants はグループ会話の最小参加者数（作成者込み）。
const minGroupParticipants = 2

// ConversationMetrics は会話メトリクスの収集インターフェース。
type ConversationMetrics interface {
	// RecordConversationCreated は会話の新規作成を記録する。
	RecordConversationCreated(isGroup bool)
}

// Service は会話のユースケースを提供する。
type Service struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
	metrics  ConversationMetrics
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(convRepo repository.ConversationRepository, userRepo repository.UserRepository, metrics ConversationMetrics) *Service {
	return &Service{
		convRepo: convRepo,
		userRepo: userRepo,
		metrics:  metrics,
	}
}

// CreateOrGetDirect は2ユーザー間のダイレクト会話を返す。
// 既存があればそれを、なければ新規作成して返す。繰り返し呼んでも、
// どちら側から呼んでも同じ会話が返る。並行作成はdirect_keyの一意制約が
// 決着させ、敗者は勝者の会話を再読み込みして返す。
func (s *Service) CreateOrGetDirect(ctx context.Context, currentUserID, targetUserID string) (*model.Conversation, error) {
	if currentUserID == targetUserID {
		return nil, model.NewSelfConversationError()
	}

	target, err := s.userRepo.FindByID(ctx, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("宛先ユーザーの検索に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}

	existing, err := s.convRepo.FindDirectBetween(ctx, currentUserID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("ダイレクト会話の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	conv := &model.Conversation{
		ID:        uuid.New().String(),
		IsGroup:   false,
		CreatedAt: time.Now(),
	}
	if err := s.convRepo.CreateDirect(ctx, conv, currentUserID, targetUserID); err != nil {
		if !errors.Is(err, repository.ErrUniqueViolation) {
			return nil, fmt.Errorf("ダイレクト会話の作成に失敗しました: %w", err)
		}

		// 並行作成に敗れた: 勝者の会話を再読み込みする
		existing, err = s.convRepo.FindDirectBetween(ctx, currentUserID, targetUserID)
		if err != nil {
			return nil, fmt.Errorf("ダイレクト会話の再読み込みに失敗しました: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("ダイレクト会話作成の競合後に勝者行が見つかりません: %s", model.PairKey(currentUserID, targetUserID))
		}
		return existing, nil
	}

	if s.metrics != nil {
		s.metrics.RecordConversationCreated(false)
	}
	slog.Info("direct conversation created",
		slog.String("conversation_id", conv.ID),
		slog.String("user_id", currentUserID),
		slog.String("other_user_id", targetUserID),
	)

	return s.reload(ctx, conv.ID)
}

// CreateGroup はグループ会話を作成する。参加者は作成者と指定メンバーを
// 重複排除したもので、合計2名以上を要求する。実在しないメンバーIDが
// 含まれる場合はIDを列挙したエラーを返す。
func (s *Service) CreateGroup(ctx context.Context, currentUserID, title string, memberIDs []string) (*model.Conversation, error) {
	participants := dedupe(currentUserID, memberIDs)
	if len(participants) < minGroupParticipants {
		return nil, model.NewGroupTooSmallError()
	}

	existing, err := s.userRepo.FindExistingIDs(ctx, participants)
	if err != nil {
		return nil, fmt.Errorf("メンバーの存在確認に失敗しました: %w", err)
	}
	var missing []string
	for _, id := range participants {
		if !existing[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, model.NewMembersNotFoundError(missing)
	}

	conv := &model.Conversation{
		ID:        uuid.New().String(),
		IsGroup:   true,
		Title:     title,
		CreatedAt: time.Now(),
	}
	if err := s.convRepo.CreateGroup(ctx, conv, participants); err != nil {
		return nil, fmt.Errorf("グループ会話の作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordConversationCreated(true)
	}
	slog.Info("group conversation created",
		slog.String("conversation_id", conv.ID),
		slog.String("creator_id", currentUserID),
		slog.Int("participants", len(participants)),
	)

	return s.reload(ctx, conv.ID)
}

// ListForUser は指定ユーザーが参加する会話を作成日時の新しい順で返す。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	convs, err := s.convRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("会話一覧の取得に失敗しました: %w", err)
	}
	return convs, nil
}

// GetByID は指定IDの会話を返す。参加者以外からの取得はエラーになる。
func (s *Service) GetByID(ctx context.Context, currentUserID, conversationID string) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	if conv == nil {
		return nil, model.NewConversationNotFoundError(conversationID)
	}
	if !conv.HasParticipant(currentUserID) {
		return nil, model.NewNotParticipantError()
	}
	return conv, nil
}

// reload は作成直後の会話を参加者付きで読み直す。
func (s *Service) reload(ctx context.Context, conversationID string) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("会話の再読み込みに失敗しました: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("作成直後の会話が見つかりません: %s", conversationID)
	}
	return conv, nil
}

// dedupe は作成者とメンバーIDを順序を保ったまま重複排除する。
// 作成者が常に先頭になる。
func dedupe(currentUserID string, memberIDs []string) []string {
	seen := map[string]bool{currentUserID: true}
	result := []string{currentUserID}
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
