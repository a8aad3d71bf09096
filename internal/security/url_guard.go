// Package security はURL検証とHTML無害化を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// URLGuard は管理者が登録する外部URLの検証と、
// 外部URLへ安全にアクセスするHTTPクライアントの生成を行う。
type URLGuard interface {
	// ValidateURL はゲームURL・サムネイルURL・インポート元URLを静的に検証する。
	ValidateURL(rawURL string) error
	// NewSafeClient は内部ネットワークへの接続を拒否するHTTPクライアントを生成する。
	NewSafeClient(timeout time.Duration) *http.Client
}

var allowedSchemes = []string{"http", "https"}

// privateNetworks は登録を拒否するアドレス範囲。
var privateNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10", // CGNAT
	"127.0.0.0/8",
	"169.254.0.0/16", // メタデータIPを含む
	"0.0.0.0/8",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %q: %v", cidr, err))
		}
		nets = append(nets, n)
	}
	return nets
}

// blockedHostSuffixes は内部向けホスト名のサフィックス。
var blockedHostSuffixes = []string{".localhost", ".local", ".internal"}

type urlGuard struct{}

// NewURLGuard はURLGuardを生成する。
func NewURLGuard() URLGuard {
	return urlGuard{}
}

// ValidateURL はスキーム、ホスト、IPアドレスを検証する。
// DNS解決は行わないため、名前解決後のアドレス検証はNewSafeClient側で行われる。
func (urlGuard) ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("empty URL")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	allowed := false
	for _, s := range allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("disallowed scheme: %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}
	if parsed.User != nil {
		return fmt.Errorf("credentials in URL are not allowed")
	}

	if ip := net.ParseIP(host); ip != nil {
		for _, n := range privateNetworks {
			if n.Contains(ip) {
				return fmt.Errorf("blocked IP address: %s", ip)
			}
		}
		return nil
	}

	if host == "localhost" {
		return fmt.Errorf("blocked host: %s", host)
	}
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return fmt.Errorf("blocked host: %s", host)
		}
	}
	return nil
}

// NewSafeClient はsafeurlでラップしたHTTPクライアントを返す。
// 接続時に解決済みIPを検証するため、DNS再バインディングも防止される。
func (urlGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(config).Client
}
