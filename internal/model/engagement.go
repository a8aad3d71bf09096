package model

import "time"

// GamePlay はゲームのプレイ記録を表す。
type GamePlay struct {
	ID        string
	GameID    string
	UserID    string // 未ログインの場合は空
	Country   string
	Device    string
	CreatedAt time.Time
}

// VisitorCountry は国別の訪問数を表す。
type VisitorCountry struct {
	Country   string
	Visits    int64
	UpdatedAt time.Time
}

// GameReview はユーザーのゲームレビューを表す。
// 1ユーザーにつき1ゲーム1件。
type GameReview struct {
	ID        string
	GameID    string
	UserID    string
	UserName  string
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Favorite はユーザーのお気に入りゲームを表す。
type Favorite struct {
	UserID    string
	GameID    string
	CreatedAt time.Time
}

// DashboardStats は管理画面ダッシュボードの集計値。
type DashboardStats struct {
	Games        int
	Users        int
	Plays        int64
	TopCountries []VisitorCountry
}
