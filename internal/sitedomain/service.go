// Package sitedomain はカスタムドメインの登録とDNSによる所有確認を提供する。
package sitedomain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/hitoshi/gameportal/internal/metrics"
	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/repository"
)

// DefaultLookupTimeout はDNS問い合わせ1回あたりのタイムアウト。
const DefaultLookupTimeout = 5 * time.Second

// Resolver はCNAMEレコードを問い合わせる。*net.Resolverが実装する。
type Resolver interface {
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// Service はドメイン登録と検証のビジネスロジックを提供する。
type Service struct {
	domains  repository.DomainRepository
	resolver Resolver
	target   string
	timeout  time.Duration
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewService はServiceを生成する。
// targetはドメインのCNAMEが向くべきホスト名。resolverがnilの場合はnet.DefaultResolverを使う。
func NewService(domains repository.DomainRepository, resolver Resolver, target string, collector metrics.MetricsCollector) *Service {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		domains:  domains,
		resolver: resolver,
		target:   normalizeHost(target),
		timeout:  DefaultLookupTimeout,
		metrics:  collector,
		now:      time.Now,
	}
}

// List は登録済みドメインを返す。
func (s *Service) List(ctx context.Context) ([]*model.DomainBinding, error) {
	domains, err := s.domains.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	return domains, nil
}

// Create はドメインを登録する。登録直後は無効状態で、検証に成功すると有効になる。
func (s *Service) Create(ctx context.Context, rawDomain string) (*model.DomainBinding, error) {
	domain, err := ValidateDomain(rawDomain)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}

	binding := &model.DomainBinding{
		ID:        uuid.New().String(),
		Domain:    domain,
		CreatedAt: s.now(),
	}
	if err := s.domains.Create(ctx, binding); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewConflictError(model.ErrCodeDomainExists,
				fmt.Sprintf("ドメイン「%s」は既に登録されています。", domain))
		}
		return nil, fmt.Errorf("failed to create domain: %w", err)
	}

	slog.Info("domain registered", slog.String("domain_id", binding.ID), slog.String("domain", domain))
	return binding, nil
}

// Delete はドメインを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.domains.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError(model.ErrCodeDomainNotFound, "ドメイン", id)
		}
		return fmt.Errorf("failed to delete domain: %w", err)
	}
	return nil
}

// Check はドメインのCNAMEを問い合わせ、結果と検証日時を保存する。
// 有効フラグは結果がvalidの場合のみtrueとなる。
func (s *Service) Check(ctx context.Context, id string) (*model.DomainCheckResult, error) {
	binding, err := s.domains.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find domain: %w", err)
	}
	if binding == nil {
		return nil, model.NewNotFoundError(model.ErrCodeDomainNotFound, "ドメイン", id)
	}
	return s.Verify(ctx, binding)
}

// Verify は取得済みのドメインを検証して結果を保存する。定期検証ワーカーからも呼ばれる。
func (s *Service) Verify(ctx context.Context, binding *model.DomainBinding) (*model.DomainCheckResult, error) {
	// 1. DNS問い合わせ
	result := s.Lookup(ctx, binding.Domain)

	// 2. 結果の保存
	if err := s.domains.UpdateCheck(ctx, binding.ID, result.Status == model.DomainCheckValid, s.now()); err != nil {
		return nil, fmt.Errorf("failed to save domain check: %w", err)
	}

	slog.Info("domain checked",
		slog.String("domain", binding.Domain),
		slog.String("status", string(result.Status)),
	)
	return result, nil
}

// Lookup はドメインのCNAMEを問い合わせて判定する。保存は行わない。
func (s *Service) Lookup(ctx context.Context, domain string) *model.DomainCheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	cname, err := s.resolver.LookupCNAME(ctx, domain)
	s.metrics.RecordDomainCheckLatency(s.now().Sub(start))

	result := &model.DomainCheckResult{Expected: s.target, Records: []string{}}
	switch {
	case err != nil:
		result.Status = model.DomainCheckError
		result.Error = err.Error()
	default:
		record := normalizeHost(cname)
		if record != "" {
			result.Records = append(result.Records, record)
		}
		// CNAMEが無いホストではLookupCNAMEは正規名としてドメイン自身を返す
		if record != "" && record == s.target {
			result.Status = model.DomainCheckValid
		} else {
			result.Status = model.DomainCheckInvalid
		}
	}

	s.metrics.RecordDomainCheck(string(result.Status))
	return result
}

// ValidateDomain はドメイン名を正規化し、登録可能なホスト名であることを検証する。
// 公開サフィックスそのもの（例: co.jp）やIPアドレスは拒否する。
func ValidateDomain(raw string) (string, error) {
	domain := normalizeHost(raw)
	if domain == "" {
		return "", fmt.Errorf("ドメインは必須です")
	}
	if len(domain) > 253 {
		return "", fmt.Errorf("ドメインが長すぎます")
	}
	if net.ParseIP(domain) != nil {
		return "", fmt.Errorf("IPアドレスは登録できません")
	}
	for _, label := range strings.Split(domain, ".") {
		if !validLabel(label) {
			return "", fmt.Errorf("ドメインの形式が正しくありません: %s", raw)
		}
	}

	suffix, icann := publicsuffix.PublicSuffix(domain)
	if !icann && !strings.Contains(suffix, ".") {
		return "", fmt.Errorf("未知のトップレベルドメインです: %s", suffix)
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(domain); err != nil {
		return "", fmt.Errorf("登録可能なドメインではありません: %s", domain)
	}
	return domain, nil
}

func validLabel(label string) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

// normalizeHost は小文字化し、前後の空白と末尾のドットを取り除く。
func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}
