package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/nseetl/internal/collector"
	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
)

const (
	sectorPath  = "/api/equity-stockIndices?index="
	holidayPath = "/api/holiday-master?type=trading"
	bhavPath    = "/products/content/sec_bhavdata_full_"
	maPath      = "/archives/equities/mkt/MA"
)

// Client talks to the exchange website and its report archive
type Client struct {
	client *http.Client
	config config.SourceConfig
	mu     sync.Mutex
	primed bool
}

// Option configures a Client
type Option func(*Client)

// WithTransport sets the round tripper used for every request
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.client.Transport = rt
	}
}

// New creates a new exchange client with a cookie jar
func New(cfg config.SourceConfig, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil) // never fails without options
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		config: cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return "nse"
}

// Fetch performs one GET and returns the status, body and final URL.
// Non-200 answers are not errors. The session is bootstrapped first so
// archive requests carry the home page cookies.
func (c *Client) Fetch(ctx context.Context, url string) (*collector.Response, error) {
	if url != c.config.BaseURL {
		if err := c.Bootstrap(ctx); err != nil {
			return nil, err
		}
	}
	return c.get(ctx, url)
}

func (c *Client) get(ctx context.Context, url string) (*collector.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Referer", c.config.BaseURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("fetching %s: %w", url, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("reading %s: %w", url, err))
	}

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	return &collector.Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		URL:        final,
	}, nil
}

// Bootstrap visits the home page once so the API endpoints see session cookies
func (c *Client) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.primed {
		return nil
	}

	if _, err := c.get(ctx, c.config.BaseURL); err != nil {
		return fmt.Errorf("session bootstrap: %w", err)
	}
	c.primed = true
	return nil
}

// SectorURL returns the constituents endpoint for an escaped index parameter
func (c *Client) SectorURL(param string) string {
	return strings.TrimRight(c.config.BaseURL, "/") + sectorPath + param
}

// HolidayURL returns the trading holiday endpoint
func (c *Client) HolidayURL() string {
	return strings.TrimRight(c.config.BaseURL, "/") + holidayPath
}

// BhavURL returns the full bhav report URL for a trading date (ddmmyyyy)
func (c *Client) BhavURL(date time.Time) string {
	return strings.TrimRight(c.config.ArchiveURL, "/") + bhavPath + date.Format("02012006") + ".csv"
}

// MAReportURL returns the market-activity report URL for a trading date (ddmmyy)
func (c *Client) MAReportURL(date time.Time) string {
	return strings.TrimRight(c.config.ArchiveURL, "/") + maPath + date.Format("020106") + ".csv"
}

// Reports returns the per-date archive reports, bhav first
func (c *Client) Reports(paths config.PathsConfig) *collector.Registry {
	r := collector.NewRegistry()
	r.Register(collector.Report{Kind: core.ReportBhav, Folder: paths.BhavDir, URL: c.BhavURL})
	r.Register(collector.Report{Kind: core.ReportMA, Folder: paths.MADir, URL: c.MAReportURL})
	return r
}

// FetchConstituents returns the member symbols of an index, excluding the
// index's own header row.
func (c *Client) FetchConstituents(ctx context.Context, param string) ([]string, error) {
	body, err := c.getJSON(ctx, c.SectorURL(param))
	if err != nil {
		return nil, err
	}
	return ParseConstituents(body)
}

// FetchTradingHolidays returns the capital-market trading holidays
func (c *Client) FetchTradingHolidays(ctx context.Context) ([]time.Time, error) {
	body, err := c.getJSON(ctx, c.HolidayURL())
	if err != nil {
		return nil, err
	}
	return ParseHolidays(body)
}

func (c *Client) getJSON(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, core.WrapError(core.ErrFetchFailed,
			fmt.Errorf("%s returned status %d", url, resp.StatusCode))
	}
	return resp.Body, nil
}

// ParseConstituents decodes an index constituents payload. Entries with
// priority 1 describe the index itself and are skipped.
func ParseConstituents(body []byte) ([]string, error) {
	var result constituentsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("decoding constituents: %w", err))
	}

	symbols := make([]string, 0, len(result.Data))
	for _, d := range result.Data {
		if d.Priority == 1 {
			continue
		}
		if s := strings.TrimSpace(d.Symbol); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols, nil
}

// ParseHolidays decodes the trading holiday payload
func ParseHolidays(body []byte) ([]time.Time, error) {
	var result holidayResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("decoding holidays: %w", err))
	}

	dates := make([]time.Time, 0, len(result.CM))
	for _, h := range result.CM {
		d, err := time.Parse(config.DateLayout, strings.TrimSpace(h.TradingDate))
		if err != nil {
			return nil, core.WrapError(core.ErrFetchFailed,
				fmt.Errorf("parsing holiday %q: %w", h.TradingDate, err))
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// API response types
type constituentsResponse struct {
	Data []struct {
		Priority int    `json:"priority"`
		Symbol   string `json:"symbol"`
	} `json:"data"`
}

type holidayResponse struct {
	CM []struct {
		TradingDate string `json:"tradingDate"`
		Description string `json:"description"`
	} `json:"CM"`
}
