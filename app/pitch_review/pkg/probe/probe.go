package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// ErrUnreachable 目标地址返回非 2xx 响应
var ErrUnreachable = errors.New("url not reachable")

// Prober 检查产品地址是否可访问
type Prober interface {
	Probe(ctx context.Context, u *url.URL) error
}

// PageFetcher 抓取页面正文
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// HTTPProber 使用 HEAD 请求探测
type HTTPProber struct {
	client *http.Client
}

// Ensure HTTPProber implements Prober
var _ Prober = (*HTTPProber)(nil)

// NewHTTPProber 创建探测器，timeout 为 0 时默认 5 秒
func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProber{
		client: &http.Client{Timeout: timeout},
	}
}

// Probe 发送 HEAD 请求，2xx 视为可访问
func (p *HTTPProber) Probe(ctx context.Context, u *url.URL) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; PitchReviewBot/1.0)")

	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrUnreachable, res.StatusCode)
	}
	return nil
}

// ParseProductURL 校验产品地址，只接受带主机名的 http/https 地址
func ParseProductURL(raw string) (*url.URL, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

// MatchDomain 判断主机名是否属于列表中的域名（含子域名）
func MatchDomain(host string, domains []string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, d := range domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// ReadabilityFetcher 使用 readability 提取正文
type ReadabilityFetcher struct {
	timeout  time.Duration
	maxChars int
}

// Ensure ReadabilityFetcher implements PageFetcher
var _ PageFetcher = (*ReadabilityFetcher)(nil)

func NewReadabilityFetcher(timeout time.Duration, maxChars int) *ReadabilityFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxChars <= 0 {
		maxChars = 2000
	}
	return &ReadabilityFetcher{timeout: timeout, maxChars: maxChars}
}

// Fetch 抓取 URL 并提取核心文本，超过上限时截断
func (f *ReadabilityFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	article, err := readability.FromURL(rawURL, f.timeout)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(article.TextContent)
	if r := []rune(content); len(r) > f.maxChars {
		content = string(r[:f.maxChars])
	}
	return content, nil
}
