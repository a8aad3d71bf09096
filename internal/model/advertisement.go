package model

import "time"

// Advertisement は広告枠に表示する広告を表す。
// Codeは埋め込み用の生HTMLで、サニタイズしない。
type Advertisement struct {
	ID        string
	Name      string
	Location  string
	Type      string
	Code      string
	IsActive  bool
	SortOrder int
	StartDate *time.Time
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EligibleAt は指定時刻に広告が表示対象かどうかを返す。
// 有効フラグが立っており、開始日時が未設定または到来済み、
// 終了日時が未設定または未到来の場合に表示対象となる。
func (a *Advertisement) EligibleAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.StartDate != nil && a.StartDate.After(now) {
		return false
	}
	if a.EndDate != nil && !a.EndDate.After(now) {
		return false
	}
	return true
}
