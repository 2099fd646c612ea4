package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tomolink/internal/model"
)

// PostgresFriendshipRepo はPostgreSQLを使用した友達関係リポジトリ。
type PostgresFriendshipRepo struct {
	db *sql.DB
}

// NewPostgresFriendshipRepo はPostgresFriendshipRepoを生成する。
func NewPostgresFriendshipRepo(db *sql.DB) *PostgresFriendshipRepo {
	return &PostgresFriendshipRepo{db: db}
}

// FindByID は指定IDの友達関係を取得する。見つからない場合はnilを返す。
func (r *PostgresFriendshipRepo) FindByID(ctx context.Context, id string) (*model.Friendship, error) {
	f := &model.Friendship{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, requester_id, addressee_id, status, created_at, updated_at
		 FROM friendships WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("友達関係の取得に失敗しました: %w", err)
	}

	return f, nil
}

// FindBetween は2ユーザー間の友達関係を方向を問わず検索する。
// pair_keyは正規化済みのため方向非依存の1点検索になる。
func (r *PostgresFriendshipRepo) FindBetween(ctx context.Context, userID, otherUserID string) (*model.Friendship, error) {
	f := &model.Friendship{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, requester_id, addressee_id, status, created_at, updated_at
		 FROM friendships WHERE pair_key = $1`,
		model.PairKey(userID, otherUserID),
	).Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("友達関係の検索に失敗しました: %w", err)
	}

	return f, nil
}

// Create は友達関係を作成する。
// 同一ペアの行がすでに存在する場合はErrUniqueViolationを返す。
func (r *PostgresFriendshipRepo) Create(ctx context.Context, f *model.Friendship) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friendships (id, requester_id, addressee_id, status, pair_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.RequesterID, f.AddresseeID, f.Status,
		model.PairKey(f.RequesterID, f.AddresseeID), f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("友達関係の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateStatus は友達関係の状態を更新する。
func (r *PostgresFriendshipRepo) UpdateStatus(ctx context.Context, id string, status model.FriendshipStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE friendships SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("友達関係の状態更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("友達関係が見つかりません: %s", id)
	}
	return nil
}

// Overwrite は方向と状態をまとめて上書きする。
// blockで既存行の方向をブロックした側に強制するために使う。
// pair_keyは方向によらず不変のため更新しない。
func (r *PostgresFriendshipRepo) Overwrite(ctx context.Context, id, requesterID, addresseeID string, status model.FriendshipStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE friendships
		 SET requester_id = $2, addressee_id = $3, status = $4, updated_at = now()
		 WHERE id = $1`,
		id, requesterID, addresseeID, status,
	)
	if err != nil {
		return fmt.Errorf("友達関係の上書きに失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("上書き結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("友達関係が見つかりません: %s", id)
	}
	return nil
}

// Delete は指定IDの友達関係を削除する。
func (r *PostgresFriendshipRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM friendships WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("友達関係の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("友達関係が見つかりません: %s", id)
	}
	return nil
}

// ListFriends は指定ユーザーのACCEPTEDな関係の相手側ユーザー一覧を返す。
// 自分がrequesterでもaddresseeでも相手側に正規化して返す。
func (r *PostgresFriendshipRepo) ListFriends(ctx context.Context, userID string) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.display_name, u.avatar_url, u.last_login_at, u.created_at
		 FROM friendships f
		 JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END
		 WHERE f.status = 'ACCEPTED' AND (f.requester_id = $1 OR f.addressee_id = $1)
		 ORDER BY u.display_name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("友達一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var friends []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.LastLoginAt, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("友達行の読み取りに失敗しました: %w", err)
		}
		friends = append(friends, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("友達一覧の走査に失敗しました: %w", err)
	}
	return friends, nil
}

// ListPendingIncoming は指定ユーザーが宛先のPENDINGな申請一覧を返す。
// Counterpartには申請者のプロフィールが入る。
func (r *PostgresFriendshipRepo) ListPendingIncoming(ctx context.Context, userID string) ([]PendingRequest, error) {
	return r.listPending(ctx,
		`SELECT f.id, f.requester_id, f.addressee_id, f.status, f.created_at, f.updated_at,
		        u.id, u.email, u.display_name, u.avatar_url, u.last_login_at, u.created_at
		 FROM friendships f
		 JOIN users u ON u.id = f.requester_id
		 WHERE f.status = 'PENDING' AND f.addressee_id = $1
		 ORDER BY f.created_at DESC`,
		userID,
	)
}

// ListPendingOutgoing は指定ユーザーが申請者のPENDINGな申請一覧を返す。
// Counterpartには宛先のプロフィールが入る。
func (r *PostgresFriendshipRepo) ListPendingOutgoing(ctx context.Context, userID string) ([]PendingRequest, error) {
	return r.listPending(ctx,
		`SELECT f.id, f.requester_id, f.addressee_id, f.status, f.created_at, f.updated_at,
		        u.id, u.email, u.display_name, u.avatar_url, u.last_login_at, u.created_at
		 FROM friendships f
		 JOIN users u ON u.id = f.addressee_id
		 WHERE f.status = 'PENDING' AND f.requester_id = $1
		 ORDER BY f.created_at DESC`,
		userID,
	)
}

// listPending は申請一覧クエリの共通実装。
func (r *PostgresFriendshipRepo) listPending(ctx context.Context, query, userID string) ([]PendingRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("申請一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var requests []PendingRequest
	for rows.Next() {
		var req PendingRequest
		if err := rows.Scan(
			&req.ID, &req.RequesterID, &req.AddresseeID, &req.Status, &req.CreatedAt, &req.UpdatedAt,
			&req.Counterpart.ID, &req.Counterpart.Email, &req.Counterpart.DisplayName,
			&req.Counterpart.AvatarURL, &req.Counterpart.LastLoginAt, &req.Counterpart.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("申請行の読み取りに失敗しました: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("申請一覧の走査に失敗しました: %w", err)
	}
	return requests, nil
}

// compile-time interface check
var _ FriendshipRepository = (*PostgresFriendshipRepo)(nil)
