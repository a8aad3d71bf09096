package model

import "time"

// DomainBinding はサイトに紐付けるカスタムドメインを表す。
type DomainBinding struct {
	ID            string
	Domain        string
	IsActive      bool
	LastCheckedAt *time.Time
	CreatedAt     time.Time
}

// DomainCheckStatus はDNS検証の結果を表す。
type DomainCheckStatus string

const (
	// DomainCheckValid は期待するCNAMEレコードが存在する状態。
	DomainCheckValid DomainCheckStatus = "valid"
	// DomainCheckInvalid はレコードは解決できたが期待値と一致しない状態。
	DomainCheckInvalid DomainCheckStatus = "invalid"
	// DomainCheckError はDNS解決自体に失敗した状態。
	DomainCheckError DomainCheckStatus = "error"
)

// DomainCheckResult はDNS検証の結果と取得したレコードを保持する。
type DomainCheckResult struct {
	Status   DomainCheckStatus
	Records  []string
	Expected string
	Error    string
}
