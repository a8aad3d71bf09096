package model

import "time"

// Game はゲーム一覧に掲載されるゲームを表す。
type Game struct {
	ID           string
	Slug         string
	Title        string
	Description  string
	ThumbnailURL string
	GameURL      string
	Category     string // カテゴリ名（categories.nameを名前で参照する）
	Tags         []string
	IsPinned     bool
	PinOrder     int
	PinExpiresAt *time.Time
	PlayCount    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Pin はゲームのピン留め状態の変更内容を表す。
type Pin struct {
	Pinned    bool
	Order     *int
	ExpiresAt *time.Time
}

// Normalize はピン留め解除時に順序と期限をリセットした値を返す。
// ピン留め時は順序の既定値を0、期限の既定値をnilとする。
func (p Pin) Normalize() (pinned bool, order int, expiresAt *time.Time) {
	if !p.Pinned {
		return false, 0, nil
	}
	if p.Order != nil {
		order = *p.Order
	}
	return true, order, p.ExpiresAt
}

// GameFilter はゲーム一覧の絞り込み条件。
type GameFilter struct {
	Category string
	Tag      string
	Query    string
	Limit    int
	Offset   int
}

// Category はゲームのカテゴリを表す。
type Category struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Tag はゲームのタグを表す。
type Tag struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}
