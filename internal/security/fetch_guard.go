package security

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes はカタログ取得で許可するURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks は事前検証で拒否するネットワーク範囲。
var blockedNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16", // クラウドメタデータIPを含む
	"0.0.0.0/8",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

var blockedHostnames = map[string]bool{
	"localhost": true,
}

// FetchGuard はSSRF防止付きで外部のカタログソースを取得する。
// 429/5xxの応答はMaxAttempts回まで指数バックオフで再試行する。
type FetchGuard struct {
	MaxAttempts int

	client    *http.Client
	maxSize   int64
	userAgent string
	validate  func(string) error
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewFetchGuard はFetchGuardを生成する。
// クライアントはsafeurlで構築し、DNS解決後のIPアドレスもDialer段階で検証する。
func NewFetchGuard(timeout time.Duration, maxSize int64) *FetchGuard {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return &FetchGuard{
		MaxAttempts: DefaultMaxAttempts,
		client:      safeurl.Client(config).Client,
		maxSize:     maxSize,
		userAgent:   "storefront-catalog/1.0",
		validate:    ValidateURL,
		sleep:       sleepContext,
	}
}

// Client はSSRF防止付きのHTTPクライアントを返す。
func (g *FetchGuard) Client() *http.Client {
	return g.client
}

// Fetch はURLを検証した上で取得し、本文を最大maxSizeバイトまで返す。
// 上限を超える本文はエラーとする。
func (g *FetchGuard) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := g.validate(rawURL); err != nil {
		return nil, err
	}

	attempts := g.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(attempt - 1)
			slog.Debug("retrying catalog fetch",
				slog.String("url", rawURL),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
			)
			if err := g.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		body, err := g.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var statusErr *StatusError
		if !errors.As(err, &statusErr) || ClassifyHTTPStatus(statusErr.StatusCode) != FetchResultBackoff {
			return nil, err
		}
	}
	return nil, lastErr
}

func (g *FetchGuard) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > g.maxSize {
		return nil, fmt.Errorf("response exceeds %d bytes", g.maxSize)
	}
	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ValidateURL はDNS解決を伴わない静的な事前検証を行う。
// DNS再バインディングはFetchGuardのクライアント側で防ぐ。
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if blockedHostnames[strings.ToLower(host)] {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %s: %v", cidr, err))
		}
		out = append(out, network)
	}
	return out
}
