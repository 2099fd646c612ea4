package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tomolink/internal/model"
)

// PostgresQrTokenRepo はPostgreSQLを使用したQRトークンリポジトリ。
type PostgresQrTokenRepo struct {
	db *sql.DB
}

// NewPostgresQrTokenRepo はPostgresQrTokenRepoを生成する。
func NewPostgresQrTokenRepo(db *sql.DB) *PostgresQrTokenRepo {
	return &PostgresQrTokenRepo{db: db}
}

// FindByUserID は指定ユーザーのQRトークンを取得する。見つからない場合はnilを返す。
func (r *PostgresQrTokenRepo) FindByUserID(ctx context.Context, userID string) (*model.QrToken, error) {
	qr := &model.QrToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, token, created_at FROM qr_tokens WHERE user_id = $1`,
		userID,
	).Scan(&qr.UserID, &qr.Token, &qr.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("QRトークンの取得に失敗しました: %w", err)
	}

	return qr, nil
}

// FindByToken はトークン文字列でレコードを検索する。見つからない場合はnilを返す。
func (r *PostgresQrTokenRepo) FindByToken(ctx context.Context, token string) (*model.QrToken, error) {
	qr := &model.QrToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, token, created_at FROM qr_tokens WHERE token = $1`,
		token,
	).Scan(&qr.UserID, &qr.Token, &qr.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("QRトークンの検索に失敗しました: %w", err)
	}

	return qr, nil
}

// Create はQRトークンを作成する。
// user_idまたはtokenの一意制約に違反した場合はErrUniqueViolationを返す。
func (r *PostgresQrTokenRepo) Create(ctx context.Context, qr *model.QrToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO qr_tokens (user_id, token, created_at) VALUES ($1, $2, $3)`,
		qr.UserID, qr.Token, qr.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("QRトークンの作成に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ QrTokenRepository = (*PostgresQrTokenRepo)(nil)
