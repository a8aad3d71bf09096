package visitor

import (
	"net"
	"net/http/httptest"
	"testing"
)

type mapLocator map[string]string

func (m mapLocator) CountryCode(ip net.IP) string { return m[ip.String()] }

const (
	uaDesktop = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	uaPhone   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	uaTablet  = "Mozilla/5.0 (iPad; CPU OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	uaBot     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestDetect_Device(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name       string
		ua         string
		wantDevice string
		wantBot    bool
	}{
		{"デスクトップ", uaDesktop, DeviceDesktop, false},
		{"スマートフォン", uaPhone, DeviceMobile, false},
		{"タブレット", uaTablet, DeviceTablet, false},
		{"クローラー", uaBot, DeviceBot, true},
		{"UAなし", "", Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/proxy-game", nil)
			r.Header.Set("User-Agent", tt.ua)

			info := d.Detect(r)
			if info.Device != tt.wantDevice || info.IsBot != tt.wantBot {
				t.Errorf("Detect() = %+v, want device %q bot %v", info, tt.wantDevice, tt.wantBot)
			}
			if info.Country != Unknown {
				t.Errorf("Country = %q, want %q without a locator", info.Country, Unknown)
			}
		})
	}
}

func TestDetect_Country(t *testing.T) {
	d := NewDetector(mapLocator{"203.0.113.7": "jp"})

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.7:54321"
	if got := d.Detect(r).Country; got != "JP" {
		t.Errorf("Country = %q, want %q", got, "JP")
	}

	r.RemoteAddr = "198.51.100.1:1234"
	if got := d.Detect(r).Country; got != Unknown {
		t.Errorf("Country = %q, want %q", got, Unknown)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:8080", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = tt.remote
		if got := ClientIP(r); got == nil || got.String() != tt.want {
			t.Errorf("ClientIP(%q) = %v, want %s", tt.remote, got, tt.want)
		}
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "garbage"
	if got := ClientIP(r); got != nil {
		t.Errorf("ClientIP(garbage) = %v, want nil", got)
	}
}
