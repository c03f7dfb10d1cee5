package http

import (
	nethttp "net/http"
	"testing"

	ntlmssp "github.com/Azure/go-ntlmssp"

	"github.com/stagelink/stagelink/internal/config"
)

// TestConfigureHTTPClientModes covers the proxy mode switch.
func TestConfigureHTTPClientModes(t *testing.T) {
	t.Run("no-proxy", func(t *testing.T) {
		client, err := ConfigureHTTPClient(&config.Config{ProxyMode: "no-proxy"}, 4)
		if err != nil {
			t.Fatalf("ConfigureHTTPClient failed: %v", err)
		}
		tr, ok := client.Transport.(*nethttp.Transport)
		if !ok {
			t.Fatalf("transport is %T, want *http.Transport", client.Transport)
		}
		if tr.Proxy != nil {
			t.Error("no-proxy mode configured a proxy function")
		}
		if tr.MaxConnsPerHost != 4 {
			t.Errorf("MaxConnsPerHost = %d, want 4", tr.MaxConnsPerHost)
		}
	})

	t.Run("empty mode defaults to no-proxy", func(t *testing.T) {
		if _, err := ConfigureHTTPClient(&config.Config{}, 4); err != nil {
			t.Errorf("ConfigureHTTPClient failed: %v", err)
		}
	})

	t.Run("system", func(t *testing.T) {
		client, err := ConfigureHTTPClient(&config.Config{ProxyMode: "system"}, 4)
		if err != nil {
			t.Fatalf("ConfigureHTTPClient failed: %v", err)
		}
		tr := client.Transport.(*nethttp.Transport)
		if tr.Proxy == nil {
			t.Error("system mode did not configure a proxy function")
		}
	})

	t.Run("basic requires host", func(t *testing.T) {
		if _, err := ConfigureHTTPClient(&config.Config{ProxyMode: "basic"}, 4); err == nil {
			t.Error("basic mode without host succeeded")
		}
	})

	t.Run("ntlm wraps transport", func(t *testing.T) {
		client, err := ConfigureHTTPClient(&config.Config{ProxyMode: "ntlm", ProxyHost: "proxy.internal"}, 4)
		if err != nil {
			t.Fatalf("ConfigureHTTPClient failed: %v", err)
		}
		if _, ok := client.Transport.(ntlmssp.Negotiator); !ok {
			t.Errorf("transport is %T, want ntlmssp.Negotiator", client.Transport)
		}
	})

	t.Run("unsupported mode", func(t *testing.T) {
		if _, err := ConfigureHTTPClient(&config.Config{ProxyMode: "socks5"}, 4); err == nil {
			t.Error("unsupported mode succeeded")
		}
	})

	t.Run("connection bound floor", func(t *testing.T) {
		client, err := ConfigureHTTPClient(&config.Config{ProxyMode: "no-proxy"}, 0)
		if err != nil {
			t.Fatalf("ConfigureHTTPClient failed: %v", err)
		}
		tr := client.Transport.(*nethttp.Transport)
		if tr.MaxConnsPerHost < 1 {
			t.Errorf("MaxConnsPerHost = %d, want at least 1", tr.MaxConnsPerHost)
		}
	})
}

// TestBuildProxyURL covers the default port and credential embedding rules.
func TestBuildProxyURL(t *testing.T) {
	u := buildProxyURL(&config.Config{ProxyHost: "proxy.internal"})
	if u.Host != "proxy.internal:8080" {
		t.Errorf("Host = %q, want proxy.internal:8080", u.Host)
	}
	if u.User != nil {
		t.Error("credentials embedded without user and password")
	}

	u = buildProxyURL(&config.Config{ProxyHost: "p", ProxyPort: 3128, ProxyUser: "svc", ProxyPassword: "secret"})
	if u.Host != "p:3128" {
		t.Errorf("Host = %q, want p:3128", u.Host)
	}
	if u.User == nil {
		t.Fatal("credentials not embedded")
	}
	if pw, _ := u.User.Password(); u.User.Username() != "svc" || pw != "secret" {
		t.Error("embedded credentials are wrong")
	}

	// User without password stays out of the URL.
	u = buildProxyURL(&config.Config{ProxyHost: "p", ProxyUser: "svc"})
	if u.User != nil {
		t.Error("credentials embedded with empty password")
	}
}

// TestNeedsProxyPassword covers the interactive-prompt decision.
func TestNeedsProxyPassword(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want bool
	}{
		{"no proxy", config.Config{ProxyMode: "no-proxy", ProxyUser: "u"}, false},
		{"system", config.Config{ProxyMode: "system", ProxyUser: "u"}, false},
		{"basic no user", config.Config{ProxyMode: "basic"}, false},
		{"basic user no password", config.Config{ProxyMode: "basic", ProxyUser: "u"}, true},
		{"basic user and password", config.Config{ProxyMode: "basic", ProxyUser: "u", ProxyPassword: "p"}, false},
		{"ntlm user no password", config.Config{ProxyMode: "ntlm", ProxyUser: "u"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsProxyPassword(&tt.cfg); got != tt.want {
				t.Errorf("NeedsProxyPassword = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestNewTransportClient checks the retry layer wraps the base client.
func TestNewTransportClient(t *testing.T) {
	client, err := NewTransportClient(&config.Config{ProxyMode: "no-proxy"}, 4)
	if err != nil {
		t.Fatalf("NewTransportClient failed: %v", err)
	}
	if client == nil || client.Transport == nil {
		t.Fatal("NewTransportClient returned an unusable client")
	}
	// The retryablehttp wrapper replaces the transport with a RoundTripper
	// that is not the plain *http.Transport.
	if _, ok := client.Transport.(*nethttp.Transport); ok {
		t.Error("transport retry layer missing")
	}
}
