package model

import "time"

// Setting はsite_configs / site_settingsのキーバリュー1件を表す。
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// SEOテンプレートのキー
const (
	SettingSiteName           = "site_name"
	SettingSEOGameTitle       = "seo_game_title"
	SettingSEOGameDescription = "seo_game_description"
)
