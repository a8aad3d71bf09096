package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/gameportal/internal/advert"
	"github.com/hitoshi/gameportal/internal/auth"
	"github.com/hitoshi/gameportal/internal/catalog"
	"github.com/hitoshi/gameportal/internal/engagement"
	"github.com/hitoshi/gameportal/internal/game"
	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/siteconfig"
	"github.com/hitoshi/gameportal/internal/visitor"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn       func(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	loginFn          func(ctx context.Context, email, password string) (*model.Session, *model.User, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, userID string) (*model.User, error)
	requestResetFn   func(ctx context.Context, email string) error
	confirmResetFn   func(ctx context.Context, email, token, newPassword string) error
	setupAdminFn     func(ctx context.Context, key string, in auth.RegisterInput) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return &model.User{ID: "user-1", Email: in.Email, Role: model.RoleUser}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, userID)
	}
	return &model.User{ID: userID, Email: userID + "@example.com", Role: model.RoleUser}, nil
}

func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.requestResetFn != nil {
		return m.requestResetFn(ctx, email)
	}
	return nil
}

func (m *mockAuthService) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error {
	if m.confirmResetFn != nil {
		return m.confirmResetFn(ctx, email, token, newPassword)
	}
	return nil
}

func (m *mockAuthService) SetupAdmin(ctx context.Context, key string, in auth.RegisterInput) (*model.User, error) {
	if m.setupAdminFn != nil {
		return m.setupAdminFn(ctx, key, in)
	}
	return nil, model.NewUnauthorizedError()
}

type mockGameService struct {
	listFn       func(ctx context.Context, filter model.GameFilter) ([]*model.Game, error)
	getFn        func(ctx context.Context, id string) (*model.Game, error)
	getBySlugFn  func(ctx context.Context, slug string) (*model.Game, error)
	createFn     func(ctx context.Context, in game.Input) (*model.Game, error)
	updateFn     func(ctx context.Context, id string, in game.Input) (*model.Game, error)
	deleteFn     func(ctx context.Context, id string) error
	setPinFn     func(ctx context.Context, id string, pin model.Pin) (*model.Game, error)
	issueTokenFn func(ctx context.Context, gameID string) (string, time.Time, error)
	redeemFn     func(ctx context.Context, gameID, token string, visit game.Visit) (*model.Game, error)
	probeFn      func(ctx context.Context, id string) (*game.ProbeResult, error)
}

func (m *mockGameService) List(ctx context.Context, filter model.GameFilter) ([]*model.Game, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockGameService) Get(ctx context.Context, id string) (*model.Game, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewNotFoundError(model.ErrCodeGameNotFound, "ゲーム", id)
}

func (m *mockGameService) GetBySlug(ctx context.Context, slug string) (*model.Game, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, model.NewNotFoundError(model.ErrCodeGameNotFound, "ゲーム", slug)
}

func (m *mockGameService) Create(ctx context.Context, in game.Input) (*model.Game, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Game{ID: "game-new", Slug: in.Slug, Title: in.Title, GameURL: in.GameURL}, nil
}

func (m *mockGameService) Update(ctx context.Context, id string, in game.Input) (*model.Game, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return &model.Game{ID: id, Slug: in.Slug, Title: in.Title, GameURL: in.GameURL}, nil
}

func (m *mockGameService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockGameService) SetPin(ctx context.Context, id string, pin model.Pin) (*model.Game, error) {
	if m.setPinFn != nil {
		return m.setPinFn(ctx, id, pin)
	}
	return &model.Game{ID: id, IsPinned: pin.Pinned}, nil
}

func (m *mockGameService) IssueAccessToken(ctx context.Context, gameID string) (string, time.Time, error) {
	if m.issueTokenFn != nil {
		return m.issueTokenFn(ctx, gameID)
	}
	return "token", time.Now().Add(30 * time.Minute), nil
}

func (m *mockGameService) Redeem(ctx context.Context, gameID, token string, visit game.Visit) (*model.Game, error) {
	if m.redeemFn != nil {
		return m.redeemFn(ctx, gameID, token, visit)
	}
	return nil, model.NewAccessDeniedError()
}

func (m *mockGameService) Probe(ctx context.Context, id string) (*game.ProbeResult, error) {
	if m.probeFn != nil {
		return m.probeFn(ctx, id)
	}
	return &game.ProbeResult{Reachable: true, StatusCode: http.StatusOK}, nil
}

type mockImporter struct {
	importFn func(ctx context.Context, feedURL, category string) (*catalog.Result, error)
}

func (m *mockImporter) Import(ctx context.Context, feedURL, category string) (*catalog.Result, error) {
	if m.importFn != nil {
		return m.importFn(ctx, feedURL, category)
	}
	return &catalog.Result{}, nil
}

type stubDetector struct {
	info visitor.Info
}

func (s stubDetector) Detect(r *http.Request) visitor.Info {
	return s.info
}

type mockTaxonomyService struct {
	tags       map[string]*model.Tag
	categories map[string]*model.Category
	inUse      map[string]int
}

func newMockTaxonomyService() *mockTaxonomyService {
	return &mockTaxonomyService{
		tags:       map[string]*model.Tag{},
		categories: map[string]*model.Category{},
		inUse:      map[string]int{},
	}
}

func (m *mockTaxonomyService) ListTags(ctx context.Context) ([]*model.Tag, error) {
	var out []*model.Tag
	for _, t := range m.tags {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTaxonomyService) CreateTag(ctx context.Context, name string) (*model.Tag, error) {
	slug := model.Slugify(name)
	if slug == "" {
		return nil, model.NewValidationError("タグ名が空です")
	}
	for _, t := range m.tags {
		if t.Name == name || t.Slug == slug {
			return nil, model.NewConflictError(model.ErrCodeTagExists, "タグは既に存在します")
		}
	}
	tag := &model.Tag{ID: "tag-" + slug, Name: name, Slug: slug}
	m.tags[tag.ID] = tag
	return tag, nil
}

func (m *mockTaxonomyService) DeleteTag(ctx context.Context, id string) error {
	if _, ok := m.tags[id]; !ok {
		return model.NewNotFoundError(model.ErrCodeTagNotFound, "タグ", id)
	}
	delete(m.tags, id)
	return nil
}

func (m *mockTaxonomyService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	var out []*model.Category
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockTaxonomyService) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	c := &model.Category{ID: "cat-" + model.Slugify(name), Name: name, Slug: model.Slugify(name)}
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockTaxonomyService) DeleteCategory(ctx context.Context, id string) error {
	c, ok := m.categories[id]
	if !ok {
		return model.NewNotFoundError(model.ErrCodeCategoryNotFound, "カテゴリ", id)
	}
	if n := m.inUse[c.Name]; n > 0 {
		return model.NewCategoryInUseError(c.Name, n)
	}
	delete(m.categories, id)
	return nil
}

type mockAdvertService struct {
	eligibleFn func(ctx context.Context, location string) ([]*model.Advertisement, error)
}

func (m *mockAdvertService) Eligible(ctx context.Context, location string) ([]*model.Advertisement, error) {
	if m.eligibleFn != nil {
		return m.eligibleFn(ctx, location)
	}
	return nil, nil
}

func (m *mockAdvertService) List(ctx context.Context) ([]*model.Advertisement, error) {
	return nil, nil
}

func (m *mockAdvertService) Create(ctx context.Context, in advert.Input) (*model.Advertisement, error) {
	return &model.Advertisement{ID: "ad-1", Name: in.Name, Location: in.Location, IsActive: in.IsActive}, nil
}

func (m *mockAdvertService) Update(ctx context.Context, id string, in advert.Input) (*model.Advertisement, error) {
	return &model.Advertisement{ID: id, Name: in.Name, Location: in.Location, IsActive: in.IsActive}, nil
}

func (m *mockAdvertService) Delete(ctx context.Context, id string) error {
	return nil
}

type mockDomainService struct {
	checkFn func(ctx context.Context, id string) (*model.DomainCheckResult, error)
}

func (m *mockDomainService) List(ctx context.Context) ([]*model.DomainBinding, error) {
	return nil, nil
}

func (m *mockDomainService) Create(ctx context.Context, rawDomain string) (*model.DomainBinding, error) {
	return &model.DomainBinding{ID: "dom-1", Domain: rawDomain}, nil
}

func (m *mockDomainService) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockDomainService) Check(ctx context.Context, id string) (*model.DomainCheckResult, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, id)
	}
	return nil, model.NewNotFoundError(model.ErrCodeDomainNotFound, "ドメイン", id)
}

type mockSiteService struct{}

func (mockSiteService) Config(ctx context.Context) (map[string]string, error) {
	return map[string]string{"site_name": "Game Portal"}, nil
}

func (mockSiteService) UpdateConfig(ctx context.Context, values map[string]string) (map[string]string, error) {
	return values, nil
}

func (mockSiteService) SEOSettings(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (mockSiteService) UpdateSEOSettings(ctx context.Context, values map[string]string) (map[string]string, error) {
	return values, nil
}

func (mockSiteService) GameSEO(ctx context.Context, slug string) (*siteconfig.SEO, error) {
	return &siteconfig.SEO{Title: slug + " | Game Portal"}, nil
}

type mockEngagementService struct {
	deleteReviewFn func(ctx context.Context, p engagement.Principal, reviewID string) error
	addFavoriteFn  func(ctx context.Context, userID, gameID string) error
}

func (m *mockEngagementService) ListReviews(ctx context.Context, gameID string) ([]*model.GameReview, error) {
	return nil, nil
}

func (m *mockEngagementService) SubmitReview(ctx context.Context, userID, gameID string, rating int, comment string) (*model.GameReview, error) {
	return &model.GameReview{ID: "rev-1", GameID: gameID, UserID: userID, Rating: rating, Comment: comment}, nil
}

func (m *mockEngagementService) DeleteReview(ctx context.Context, p engagement.Principal, reviewID string) error {
	if m.deleteReviewFn != nil {
		return m.deleteReviewFn(ctx, p, reviewID)
	}
	return nil
}

func (m *mockEngagementService) Favorites(ctx context.Context, userID string) ([]*model.Game, error) {
	return nil, nil
}

func (m *mockEngagementService) AddFavorite(ctx context.Context, userID, gameID string) error {
	if m.addFavoriteFn != nil {
		return m.addFavoriteFn(ctx, userID, gameID)
	}
	return nil
}

func (m *mockEngagementService) RemoveFavorite(ctx context.Context, userID, gameID string) error {
	return nil
}

func (m *mockEngagementService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	return &model.DashboardStats{Games: 3, Users: 2, Plays: 10}, nil
}

type mockUserService struct {
	changeRoleFn func(ctx context.Context, actorID, userID string, role model.Role) (*model.User, error)
}

func (m *mockUserService) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	return []*model.User{{ID: "user-1", Role: model.RoleAdmin}}, nil
}

func (m *mockUserService) ChangeRole(ctx context.Context, actorID, userID string, role model.Role) (*model.User, error) {
	if m.changeRoleFn != nil {
		return m.changeRoleFn(ctx, actorID, userID, role)
	}
	return &model.User{ID: userID, Role: role}, nil
}

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, nil
}

type mockHealthChecker struct {
	err error
}

func (m mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}
