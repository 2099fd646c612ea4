package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrUniqueViolation はストアの一意制約違反を表す。
// 並行作成の敗者側が観測するエラーで、呼び出し側がConflictへの変換や
// 勝者行の再読み込みを判断する。
var ErrUniqueViolation = errors.New("unique constraint violation")

// ErrTokenRotated はローテーション対象のリフレッシュトークンが
// すでに失効済みまたは存在しないことを表す。
// ローテーション済みトークンの再利用（盗難の兆候）として扱う。
var ErrTokenRotated = errors.New("refresh token already rotated or missing")

// uniqueViolationCode はPostgreSQLのunique_violationエラーコード。
const uniqueViolationCode = "23505"

// isUniqueViolation はエラーがPostgreSQLの一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}
