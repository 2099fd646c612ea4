// Package friendship は友達関係のステートマシンを提供する。
// 2ユーザー間の関係は方向を問わず高々1行で、PENDING、ACCEPTED、BLOCKEDの
// いずれかの状態を取る。
package friendship

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

// QrResolver はQRトークンを所有者のユーザーIDに解決する。
// 未知のトークンは空文字で返す。
type QrResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// FriendMetrics は友達関係メトリクスの収集インターフェース。
type FriendMetrics interface {
	// RecordFriendRequest は友達申請の作成を記録する。
	RecordFriendRequest()
}

// PendingLists は受信/送信それぞれの申請一覧。
type PendingLists struct {
	Incoming []repository.PendingRequest
	Outgoing []repository.PendingRequest
}

// Service は友達申請、承認、拒否、ブロックのユースケースを提供する。
type Service struct {
	friendRepo repository.FriendshipRepository
	userRepo   repository.UserRepository
	qrResolver QrResolver
	metrics    FriendMetrics
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(friendRepo repository.FriendshipRepository, userRepo repository.UserRepository, qrResolver QrResolver, metrics FriendMetrics) *Service {
	return &Service{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		qrResolver: qrResolver,
		metrics:    metrics,
	}
}

// SendRequest はcurrentUserからtargetUserへの友達申請を作成する。
// 既存の関係がある場合は状態に応じたConflictエラーを返す。
// 同一ペアへの並行申請はpair_keyの一意制約が決着させ、敗者は
// 申請済みエラーを受け取る。
func (s *Service) SendRequest(ctx context.Context, currentUserID, targetUserID string) (*model.Friendship, error) {
	if currentUserID == targetUserID {
		return nil, model.NewSelfFriendRequestError()
	}

	target, err := s.userRepo.FindByID(ctx, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("宛先ユーザーの検索に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}

	existing, err := s.friendRepo.FindBetween(ctx, currentUserID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("既存の友達関係の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, existingRelationError(existing)
	}

	now := time.Now()
	friendship := &model.Friendship{
		ID:          uuid.New().String(),
		RequesterID: currentUserID,
		AddresseeID: targetUserID,
		Status:      model.FriendshipPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.friendRepo.Create(ctx, friendship); err != nil {
		// 並行申請に敗れた: 勝者の行がすでに存在する
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, model.NewRequestPendingError()
		}
		return nil, fmt.Errorf("友達申請の作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordFriendRequest()
	}
	slog.Info("friend request created",
		slog.String("requester_id", currentUserID),
		slog.String("addressee_id", targetUserID),
	)

	return friendship, nil
}

// SendRequestFromQr はQRトークンを所有者に解決し、友達申請を作成する。
// 未知のトークンはNotFoundエラーになる。
func (s *Service) SendRequestFromQr(ctx context.Context, currentUserID, qrToken string) (*model.Friendship, error) {
	ownerID, err := s.qrResolver.Resolve(ctx, qrToken)
	if err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, model.NewQrTokenNotFoundError()
	}
	return s.SendRequest(ctx, currentUserID, ownerID)
}

// Accept は宛先ユーザーによる申請の承認を行い、関係をACCEPTEDに遷移させる。
// 宛先以外の承認、PENDING以外の状態の承認はエラーになる。
func (s *Service) Accept(ctx context.Context, currentUserID, friendshipID string) (*model.Friendship, error) {
	friendship, err := s.findPendingForAddressee(ctx, currentUserID, friendshipID)
	if err != nil {
		return nil, err
	}

	if err := s.friendRepo.UpdateStatus(ctx, friendship.ID, model.FriendshipAccepted); err != nil {
		return nil, fmt.Errorf("友達申請の承認に失敗しました: %w", err)
	}
	friendship.Status = model.FriendshipAccepted
	friendship.UpdatedAt = time.Now()

	slog.Info("friend request accepted",
		slog.String("friendship_id", friendship.ID),
		slog.String("addressee_id", currentUserID),
		slog.String("requester_id", friendship.OtherUserID(currentUserID)),
	)

	return friendship, nil
}

// Reject は宛先ユーザーによる申請の拒否を行い、行ごと削除する。
// 削除後は申請者が改めて申請をやり直せる。
func (s *Service) Reject(ctx context.Context, currentUserID, friendshipID string) error {
	friendship, err := s.findPendingForAddressee(ctx, currentUserID, friendshipID)
	if err != nil {
		return err
	}

	if err := s.friendRepo.Delete(ctx, friendship.ID); err != nil {
		return fmt.Errorf("友達申請の拒否に失敗しました: %w", err)
	}

	slog.Info("friend request rejected",
		slog.String("friendship_id", friendship.ID),
		slog.String("addressee_id", currentUserID),
		slog.String("requester_id", friendship.OtherUserID(currentUserID)),
	)

	return nil
}

// Block はcurrentUserからtargetUserへのブロックを行う。
// 既存の関係は状態を問わずブロック元からのBLOCKEDで上書きされ、
// 関係がなければ新規にBLOCKED行を作成する。方向はブロック元が
// requesterになるよう上書きされる。
func (s *Service) Block(ctx context.Context, currentUserID, targetUserID string) (*model.Friendship, error) {
	if currentUserID == targetUserID {
		return nil, model.NewSelfBlockError()
	}

	target, err := s.userRepo.FindByID(ctx, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("宛先ユーザーの検索に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}

	existing, err := s.friendRepo.FindBetween(ctx, currentUserID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("既存の友達関係の検索に失敗しました: %w", err)
	}

	now := time.Now()
	if existing == nil {
		friendship := &model.Friendship{
			ID:          uuid.New().String(),
			RequesterID: currentUserID,
			AddresseeID: targetUserID,
			Status:      model.FriendshipBlocked,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err := s.friendRepo.Create(ctx, friendship)
		if err == nil {
			slog.Info("user blocked",
				slog.String("blocker_id", currentUserID),
				slog.String("blocked_id", targetUserID),
			)
			return friendship, nil
		}
		if !errors.Is(err, repository.ErrUniqueViolation) {
			return nil, fmt.Errorf("ブロックの作成に失敗しました: %w", err)
		}

		// 並行作成に敗れた: 勝者の行を読み直して上書きに切り替える
		existing, err = s.friendRepo.FindBetween(ctx, currentUserID, targetUserID)
		if err != nil {
			return nil, fmt.Errorf("友達関係の再読み込みに失敗しました: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("ブロック作成の競合後に勝者行が見つかりません: %s", model.PairKey(currentUserID, targetUserID))
		}
	}

	if err := s.friendRepo.Overwrite(ctx, existing.ID, currentUserID, targetUserID, model.FriendshipBlocked); err != nil {
		return nil, fmt.Errorf("ブロックへの上書きに失敗しました: %w", err)
	}
	existing.RequesterID = currentUserID
	existing.AddresseeID = targetUserID
	existing.Status = model.FriendshipBlocked
	existing.UpdatedAt = now

	slog.Info("user blocked",
		slog.String("blocker_id", currentUserID),
		slog.String("blocked_id", targetUserID),
	)

	return existing, nil
}

// ListFriends は指定ユーザーのACCEPTEDな関係の相手側プロフィール一覧を返す。
func (s *Service) ListFriends(ctx context.Context, userID string) ([]model.User, error) {
	friends, err := s.friendRepo.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("友達一覧の取得に失敗しました: %w", err)
	}
	return friends, nil
}

// ListPending は指定ユーザーの受信/送信それぞれのPENDINGな申請一覧を返す。
func (s *Service) ListPending(ctx context.Context, userID string) (*PendingLists, error) {
	incoming, err := s.friendRepo.ListPendingIncoming(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("受信申請一覧の取得に失敗しました: %w", err)
	}
	outgoing, err := s.friendRepo.ListPendingOutgoing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("送信申請一覧の取得に失敗しました: %w", err)
	}
	return &PendingLists{
		Incoming: incoming,
		Outgoing: outgoing,
	}, nil
}

// findPendingForAddressee はaccept/reject共通の前提検査を行う。
// 申請が存在し、currentUserが宛先で、状態がPENDINGであることを確認する。
func (s *Service) findPendingForAddressee(ctx context.Context, currentUserID, friendshipID string) (*model.Friendship, error) {
	friendship, err := s.friendRepo.FindByID(ctx, friendshipID)
	if err != nil {
		return nil, fmt.Errorf("友達関係の検索に失敗しました: %w", err)
	}
	if friendship == nil {
		return nil, model.NewFriendshipNotFoundError(friendshipID)
	}
	if friendship.AddresseeID != currentUserID {
		return nil, model.NewNotAddresseeError()
	}
	if friendship.Status != model.FriendshipPending {
		return nil, model.NewRequestNotPendingError()
	}
	return friendship, nil
}

// existingRelationError は既存関係の状態を申請時のConflictエラーに変換する。
func existingRelationError(existing *model.Friendship) *model.APIError {
	switch existing.Status {
	case model.FriendshipAccepted:
		return model.NewAlreadyFriendsError()
	case model.FriendshipBlocked:
		return model.NewUserBlockedError()
	default:
		return model.NewRequestPendingError()
	}
}
