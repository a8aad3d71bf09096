package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound は更新・削除対象の行が存在しない場合のエラー。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate は一意制約違反のエラー。
	ErrDuplicate = errors.New("duplicate record")
)

const (
	// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
	uniqueViolation = "23505"
	// invalidTextRepresentation はUUID列に不正な文字列を渡した場合のSQLSTATE。
	invalidTextRepresentation = "22P02"
)

// isUniqueViolation はエラーが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	return hasSQLState(err, uniqueViolation)
}

// isInvalidID はIDがUUIDとして解釈できずに失敗したかどうかを判定する。
// そのようなIDの行は存在し得ないため、呼び出し側は「見つからない」として扱う。
func isInvalidID(err error) bool {
	return hasSQLState(err, invalidTextRepresentation)
}

// isMissingRow は単一行の取得で対象が存在しなかったかどうかを判定する。
func isMissingRow(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || isInvalidID(err)
}

func hasSQLState(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code
	}
	return false
}
