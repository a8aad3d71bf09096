package handler

import (
	"time"

	"github.com/hitoshi/gameportal/internal/model"
)

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// gameResponse はゲーム情報のAPIレスポンス。
type gameResponse struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ThumbnailURL string     `json:"thumbnail_url"`
	GameURL      string     `json:"game_url"`
	Category     string     `json:"category"`
	Tags         []string   `json:"tags"`
	IsPinned     bool       `json:"is_pinned"`
	PinOrder     int        `json:"pin_order"`
	PinExpiresAt *time.Time `json:"pin_expires_at"`
	PlayCount    int64      `json:"play_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// taxonomyResponse はカテゴリ・タグのAPIレスポンス。
type taxonomyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// advertisementResponse は広告のAPIレスポンス。
type advertisementResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Location  string     `json:"location"`
	AdType    string     `json:"ad_type"`
	Code      string     `json:"code"`
	IsActive  bool       `json:"is_active"`
	SortOrder int        `json:"sort_order"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// domainResponse はドメインバインディングのAPIレスポンス。
type domainResponse struct {
	ID            string     `json:"id"`
	Domain        string     `json:"domain"`
	IsActive      bool       `json:"is_active"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// domainCheckResponse はドメイン検証結果のAPIレスポンス。
type domainCheckResponse struct {
	Status   string   `json:"status"`
	Records  []string `json:"records"`
	Expected string   `json:"expected"`
	Error    string   `json:"error,omitempty"`
}

// reviewResponse はレビューのAPIレスポンス。
type reviewResponse struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// countryResponse は訪問国別の集計。
type countryResponse struct {
	Country string `json:"country"`
	Visits  int64  `json:"visits"`
}

// statsResponse は管理画面ダッシュボードの集計値。
type statsResponse struct {
	Games        int               `json:"games"`
	Users        int               `json:"users"`
	Plays        int64             `json:"plays"`
	TopCountries []countryResponse `json:"top_countries"`
}

// --- 変換関数 ---

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func toGameResponse(g *model.Game) gameResponse {
	tags := g.Tags
	if tags == nil {
		tags = []string{}
	}
	return gameResponse{
		ID:           g.ID,
		Slug:         g.Slug,
		Title:        g.Title,
		Description:  g.Description,
		ThumbnailURL: g.ThumbnailURL,
		GameURL:      g.GameURL,
		Category:     g.Category,
		Tags:         tags,
		IsPinned:     g.IsPinned,
		PinOrder:     g.PinOrder,
		PinExpiresAt: g.PinExpiresAt,
		PlayCount:    g.PlayCount,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func toGameResponses(games []*model.Game) []gameResponse {
	out := make([]gameResponse, len(games))
	for i, g := range games {
		out[i] = toGameResponse(g)
	}
	return out
}

func toCategoryResponses(categories []*model.Category) []taxonomyResponse {
	out := make([]taxonomyResponse, len(categories))
	for i, c := range categories {
		out[i] = taxonomyResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
	}
	return out
}

func toTagResponses(tags []*model.Tag) []taxonomyResponse {
	out := make([]taxonomyResponse, len(tags))
	for i, t := range tags {
		out[i] = taxonomyResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
	}
	return out
}

func toAdvertisementResponse(ad *model.Advertisement) advertisementResponse {
	return advertisementResponse{
		ID:        ad.ID,
		Name:      ad.Name,
		Location:  ad.Location,
		AdType:    ad.Type,
		Code:      ad.Code,
		IsActive:  ad.IsActive,
		SortOrder: ad.SortOrder,
		StartDate: ad.StartDate,
		EndDate:   ad.EndDate,
	}
}

func toAdvertisementResponses(ads []*model.Advertisement) []advertisementResponse {
	out := make([]advertisementResponse, len(ads))
	for i, ad := range ads {
		out[i] = toAdvertisementResponse(ad)
	}
	return out
}

func toDomainResponse(d *model.DomainBinding) domainResponse {
	return domainResponse{
		ID:            d.ID,
		Domain:        d.Domain,
		IsActive:      d.IsActive,
		LastCheckedAt: d.LastCheckedAt,
		CreatedAt:     d.CreatedAt,
	}
}

func toDomainCheckResponse(r *model.DomainCheckResult) domainCheckResponse {
	records := r.Records
	if records == nil {
		records = []string{}
	}
	return domainCheckResponse{
		Status:   string(r.Status),
		Records:  records,
		Expected: r.Expected,
		Error:    r.Error,
	}
}

func toReviewResponse(r *model.GameReview) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		GameID:    r.GameID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toStatsResponse(s *model.DashboardStats) statsResponse {
	countries := make([]countryResponse, len(s.TopCountries))
	for i, c := range s.TopCountries {
		countries[i] = countryResponse{Country: c.Country, Visits: c.Visits}
	}
	return statsResponse{
		Games:        s.Games,
		Users:        s.Users,
		Plays:        s.Plays,
		TopCountries: countries,
	}
}
