package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tomolink/internal/model"
)

// PostgresRefreshTokenRepo はPostgreSQLを使用したリフレッシュトークンリポジトリ。
type PostgresRefreshTokenRepo struct {
	db *sql.DB
}

// NewPostgresRefreshTokenRepo はPostgresRefreshTokenRepoを生成する。
func NewPostgresRefreshTokenRepo(db *sql.DB) *PostgresRefreshTokenRepo {
	return &PostgresRefreshTokenRepo{db: db}
}

// Create はリフレッシュトークンレコードを作成する。
func (r *PostgresRefreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, revoked, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		token.ID, token.UserID, token.Token, token.Revoked, token.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("リフレッシュトークンの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByToken はトークン文字列でレコードを検索する。見つからない場合はnilを返す。
func (r *PostgresRefreshTokenRepo) FindByToken(ctx context.Context, tokenStr string) (*model.RefreshToken, error) {
	token := &model.RefreshToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, revoked, created_at
		 FROM refresh_tokens WHERE token = $1`,
		tokenStr,
	).Scan(&token.ID, &token.UserID, &token.Token, &token.Revoked, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リフレッシュトークンの検索に失敗しました: %w", err)
	}

	return token, nil
}

// Rotate は提示されたトークンの失効と後継トークンの作成を
// 単一トランザクションで実行する。
// UPDATEの条件にrevoked = falseを含めることで、同一トークンへの
// 並行ローテーションでは先にコミットした側だけが行を獲得し、
// 敗者はErrTokenRotatedを観測する。
func (r *PostgresRefreshTokenRepo) Rotate(ctx context.Context, presentedToken string, next *model.RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 提示トークンを失効させる
	result, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE token = $1 AND revoked = false`,
		presentedToken,
	)
	if err != nil {
		return fmt.Errorf("リフレッシュトークンの失効に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("失効結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTokenRotated
	}

	// 後継トークンを作成する
	_, err = tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, revoked, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		next.ID, next.UserID, next.Token, next.Revoked, next.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("後継リフレッシュトークンの作成に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// compile-time interface check
var _ RefreshTokenRepository = (*PostgresRefreshTokenRepo)(nil)
