// Package visitor はリクエストから訪問者の国と端末種別を判定する。
package visitor

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

// Unknown は判定できなかった場合の値。
const Unknown = "unknown"

// 端末種別
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceOther   = "other"
)

// Info はリクエスト元の訪問者情報。
type Info struct {
	Country string
	Device  string
	IsBot   bool
}

// Locator はIPアドレスから国コード（ISO 3166-1 alpha-2）を返す。
type Locator interface {
	CountryCode(ip net.IP) string
}

// GeoIPLocator はMaxMind GeoLite2-Countryデータベースで国を判定する。
type GeoIPLocator struct {
	reader *geoip2.Reader
}

// OpenGeoIP はmmdbファイルを開く。
func OpenGeoIP(path string) (*GeoIPLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &GeoIPLocator{reader: reader}, nil
}

// CountryCode はIPアドレスの国コードを返す。判定できない場合は空文字列を返す。
func (g *GeoIPLocator) CountryCode(ip net.IP) string {
	record, err := g.reader.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

// Close はデータベースを閉じる。
func (g *GeoIPLocator) Close() error {
	return g.reader.Close()
}

// Detector はリクエストから訪問者情報を組み立てる。
type Detector struct {
	locator Locator
}

// NewDetector はDetectorを生成する。locatorがnilの場合、国は常にunknownとなる。
func NewDetector(locator Locator) *Detector {
	return &Detector{locator: locator}
}

// Detect はリクエスト元の国、端末種別、ボット判定を返す。
// クライアントIPはRemoteAddrから取得するため、プロキシ配下ではRealIPミドルウェアを前段に置く。
func (d *Detector) Detect(r *http.Request) Info {
	info := Info{Country: Unknown}

	if d.locator != nil {
		if ip := ClientIP(r); ip != nil {
			if code := d.locator.CountryCode(ip); code != "" {
				info.Country = strings.ToUpper(code)
			}
		}
	}

	info.Device, info.IsBot = classify(r.UserAgent())
	return info
}

// ClientIP はRemoteAddrからIPアドレスを取り出す。
func ClientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(strings.TrimSpace(host))
}

// classify はUser-Agentから端末種別とボット判定を返す。
func classify(userAgent string) (string, bool) {
	if userAgent == "" {
		return Unknown, false
	}
	ua := uasurfer.Parse(userAgent)
	if ua.IsBot() {
		return DeviceBot, true
	}
	switch ua.DeviceType {
	case uasurfer.DeviceComputer:
		return DeviceDesktop, false
	case uasurfer.DevicePhone, uasurfer.DeviceWearable:
		return DeviceMobile, false
	case uasurfer.DeviceTablet:
		return DeviceTablet, false
	case uasurfer.DeviceUnknown:
		return Unknown, false
	default:
		return DeviceOther, false
	}
}
