// Package advert は広告の配信対象の選定と管理を提供する。
package advert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/repository"
)

const (
	// maxPerLocation は掲載位置指定時に返す広告の上限。
	maxPerLocation = 1
	// maxWithoutLocation は掲載位置未指定時に返す広告の上限。
	maxWithoutLocation = 10
)

// Input は管理画面から登録・更新される広告の内容。
type Input struct {
	Name      string
	Location  string
	Type      string
	Code      string
	IsActive  bool
	SortOrder int
	StartDate *time.Time
	EndDate   *time.Time
}

// Service は広告に関するビジネスロジックを提供する。
type Service struct {
	ads repository.AdvertisementRepository
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(ads repository.AdvertisementRepository) *Service {
	return &Service{ads: ads, now: time.Now}
}

// Eligible は現在表示すべき広告をsort_order昇順で返す。
// 掲載位置を指定した場合はその位置の先頭1件、未指定の場合は最大10件を返す。
func (s *Service) Eligible(ctx context.Context, location string) ([]*model.Advertisement, error) {
	location = strings.TrimSpace(location)
	ads, err := s.ads.ListActive(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to list active advertisements: %w", err)
	}

	limit := maxWithoutLocation
	if location != "" {
		limit = maxPerLocation
	}

	now := s.now()
	out := make([]*model.Advertisement, 0, limit)
	for _, ad := range ads {
		if len(out) == limit {
			break
		}
		if ad.EligibleAt(now) {
			out = append(out, ad)
		}
	}
	return out, nil
}

// List は管理画面向けに全広告を返す。
func (s *Service) List(ctx context.Context) ([]*model.Advertisement, error) {
	ads, err := s.ads.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list advertisements: %w", err)
	}
	return ads, nil
}

// Create は広告を登録する。コードはサニタイズせずそのまま保存する。
func (s *Service) Create(ctx context.Context, in Input) (*model.Advertisement, error) {
	if apiErr := validate(in); apiErr != nil {
		return nil, apiErr
	}

	now := s.now()
	ad := &model.Advertisement{ID: uuid.New().String(), CreatedAt: now}
	apply(ad, in)
	ad.UpdatedAt = now
	if err := s.ads.Create(ctx, ad); err != nil {
		return nil, fmt.Errorf("failed to create advertisement: %w", err)
	}

	slog.Info("advertisement created",
		slog.String("ad_id", ad.ID),
		slog.String("location", ad.Location),
	)
	return ad, nil
}

// Update は広告を更新する。
func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Advertisement, error) {
	if apiErr := validate(in); apiErr != nil {
		return nil, apiErr
	}

	ad, err := s.ads.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find advertisement: %w", err)
	}
	if ad == nil {
		return nil, model.NewNotFoundError(model.ErrCodeAdNotFound, "広告", id)
	}

	apply(ad, in)
	ad.UpdatedAt = s.now()
	if err := s.ads.Update(ctx, ad); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewNotFoundError(model.ErrCodeAdNotFound, "広告", id)
		}
		return nil, fmt.Errorf("failed to update advertisement: %w", err)
	}
	return ad, nil
}

// Delete は広告を削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ads.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError(model.ErrCodeAdNotFound, "広告", id)
		}
		return fmt.Errorf("failed to delete advertisement: %w", err)
	}
	slog.Info("advertisement deleted", slog.String("ad_id", id))
	return nil
}

func validate(in Input) *model.APIError {
	if strings.TrimSpace(in.Name) == "" {
		return model.NewValidationError("名前は必須です")
	}
	if strings.TrimSpace(in.Location) == "" {
		return model.NewValidationError("掲載位置は必須です")
	}
	if in.StartDate != nil && in.EndDate != nil && !in.EndDate.After(*in.StartDate) {
		return model.NewValidationError("終了日時は開始日時より後にしてください")
	}
	return nil
}

func apply(ad *model.Advertisement, in Input) {
	ad.Name = strings.TrimSpace(in.Name)
	ad.Location = strings.TrimSpace(in.Location)
	ad.Type = strings.TrimSpace(in.Type)
	ad.Code = in.Code
	ad.IsActive = in.IsActive
	ad.SortOrder = in.SortOrder
	ad.StartDate = in.StartDate
	ad.EndDate = in.EndDate
}
