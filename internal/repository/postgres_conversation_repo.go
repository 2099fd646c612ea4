package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tomolink/internal/model"
	"github.com/lib/pq"
)

// PostgresConversationRepo はPostgreSQLを使用した会話リポジトリ。
type PostgresConversationRepo struct {
	db *sql.DB
}

// NewPostgresConversationRepo はPostgresConversationRepoを生成する。
func NewPostgresConversationRepo(db *sql.DB) *PostgresConversationRepo {
	return &PostgresConversationRepo{db: db}
}

// FindByID は指定IDの会話を参加者付きで取得する。見つからない場合はnilを返す。
func (r *PostgresConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, is_group, title, created_at FROM conversations WHERE id = $1`,
		id,
	).Scan(&conv.ID, &conv.IsGroup, &conv.Title, &conv.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}

	if err := r.loadParticipants(ctx, []*model.Conversation{conv}); err != nil {
		return nil, err
	}
	return conv, nil
}

// FindDirectBetween は2ユーザー間のダイレクト会話を検索する。
// direct_keyは正規化済みペアキーのため方向非依存の1点検索になる。
func (r *PostgresConversationRepo) FindDirectBetween(ctx context.Context, userID, otherUserID string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, is_group, title, created_at FROM conversations WHERE direct_key = $1`,
		model.PairKey(userID, otherUserID),
	).Scan(&conv.ID, &conv.IsGroup, &conv.Title, &conv.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ダイレクト会話の検索に失敗しました: %w", err)
	}

	if err := r.loadParticipants(ctx, []*model.Conversation{conv}); err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateDirect はダイレクト会話と2参加者を単一トランザクションで作成する。
// direct_keyの一意制約違反時はErrUniqueViolationを返し、何も書き込まない。
// 並行作成ではこの制約が勝敗を決め、敗者は勝者行を再読み込みできる。
func (r *PostgresConversationRepo) CreateDirect(ctx context.Context, conv *model.Conversation, userID, otherUserID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, is_group, title, direct_key, created_at)
		 VALUES ($1, false, '', $2, $3)`,
		conv.ID, model.PairKey(userID, otherUserID), conv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("ダイレクト会話の作成に失敗しました: %w", err)
	}

	for _, participantID := range []string{userID, otherUserID} {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)`,
			conv.ID, participantID,
		)
		if err != nil {
			return fmt.Errorf("会話参加者の作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// CreateGroup はグループ会話と全参加者を単一トランザクションで作成する。
func (r *PostgresConversationRepo) CreateGroup(ctx context.Context, conv *model.Conversation, memberIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, is_group, title, direct_key, created_at)
		 VALUES ($1, true, $2, NULL, $3)`,
		conv.ID, conv.Title, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("グループ会話の作成に失敗しました: %w", err)
	}

	for _, memberID := range memberIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)`,
			conv.ID, memberID,
		)
		if err != nil {
			return fmt.Errorf("会話参加者の作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// ListByUserID は指定ユーザーが参加する会話を作成日時の新しい順で返す。
func (r *PostgresConversationRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Conversation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.is_group, c.title, c.created_at
		 FROM conversations c
		 JOIN conversation_participants cp ON cp.conversation_id = c.id
		 WHERE cp.user_id = $1
		 ORDER BY c.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("会話一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var convs []*model.Conversation
	for rows.Next() {
		conv := &model.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.IsGroup, &conv.Title, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("会話行の読み取りに失敗しました: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("会話一覧の走査に失敗しました: %w", err)
	}

	if err := r.loadParticipants(ctx, convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// loadParticipants は会話ごとの参加者プロフィールをまとめて読み込む。
func (r *PostgresConversationRepo) loadParticipants(ctx context.Context, convs []*model.Conversation) error {
	if len(convs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(convs))
	byID := make(map[string]*model.Conversation, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ID)
		byID[conv.ID] = conv
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT cp.conversation_id, u.id, u.email, u.display_name, u.avatar_url, u.last_login_at, u.created_at
		 FROM conversation_participants cp
		 JOIN users u ON u.id = cp.user_id
		 WHERE cp.conversation_id = ANY($1)
		 ORDER BY cp.created_at ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("会話参加者の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var convID string
		var u model.User
		if err := rows.Scan(&convID, &u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.LastLoginAt, &u.CreatedAt); err != nil {
			return fmt.Errorf("会話参加者行の読み取りに失敗しました: %w", err)
		}
		if conv, ok := byID[convID]; ok {
			conv.Participants = append(conv.Participants, u)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("会話参加者一覧の走査に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ConversationRepository = (*PostgresConversationRepo)(nil)
