package espn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
	"github.com/matchdaylabs/qualprob/internal/platform/logging"
	"github.com/matchdaylabs/qualprob/internal/platform/resilience"
	"github.com/matchdaylabs/qualprob/internal/usecase"
)

const defaultBaseURL = "https://site.web.api.espn.com/apis/v2/sports/soccer"

var errESPNTransient = crerr.New("espn transient failure")

// LeagueCodes maps each confederation to its World Cup qualifying league
// slug on the standings API.
var LeagueCodes = map[standings.Confederation]string{
	standings.AFC:      "fifa.worldq.afc",
	standings.CAF:      "fifa.worldq.caf",
	standings.CONCACAF: "fifa.worldq.concacaf",
	standings.CONMEBOL: "fifa.worldq.conmebol",
	standings.UEFA:     "fifa.worldq.uefa",
	standings.OFC:      "fifa.worldq.ofc",
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Confederation  standings.Confederation
	Season         int
	SeasonType     int
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.BreakerSettings
}

// Client fetches one confederation's qualifying standings. Build one per
// confederation; they are independent and safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	confederation  standings.Confederation
	season         int
	seasonType     int
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.Breaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if !cfg.Confederation.Valid() {
		return nil, fmt.Errorf("unknown confederation %q", cfg.Confederation)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		confederation:  cfg.Confederation,
		season:         cfg.Season,
		seasonType:     cfg.SeasonType,
		maxRetries:     maxRetries,
		logger:         logger,
		breaker:        resilience.NewBreaker(cfg.CircuitBreaker),
		circuitEnabled: cfg.CircuitBreaker.Enabled,
	}, nil
}

func (c *Client) Confederation() standings.Confederation {
	return c.confederation
}

// SourceURL is the full request URL including query parameters.
func (c *Client) SourceURL() string {
	return c.baseURL + "/" + LeagueCodes[c.confederation] + "/standings?" + c.queryValues().Encode()
}

// FetchStandings downloads and normalizes the confederation's qualifying
// tables. Every returned group carries the source URL, fetch time, and a
// checksum of the canonicalized payload.
func (c *Client) FetchStandings(ctx context.Context) ([]standings.Group, error) {
	raw, err := c.fetchRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch standings confederation=%s: %w", c.confederation, err)
	}

	groups, err := parsePayload(c.confederation, raw)
	if err != nil {
		return nil, fmt.Errorf("parse standings confederation=%s: %w", c.confederation, err)
	}

	checksum, err := payloadChecksum(raw)
	if err != nil {
		return nil, fmt.Errorf("checksum standings confederation=%s: %w", c.confederation, err)
	}

	fetchedAt := time.Now().UTC()
	sourceURL := c.SourceURL()
	for i := range groups {
		groups[i].SourceURL = sourceURL
		groups[i].FetchedAt = fetchedAt
		groups[i].Checksum = checksum
	}

	return groups, nil
}

func (c *Client) queryValues() url.Values {
	values := url.Values{}
	values.Set("region", "us")
	values.Set("lang", "en")
	values.Set("contentorigin", "espn")
	values.Set("level", "2")
	if c.season > 0 {
		values.Set("season", strconv.Itoa(c.season))
	}
	if c.seasonType > 0 {
		values.Set("seasontype", strconv.Itoa(c.seasonType))
	}
	return values
}

func (c *Client) fetchRaw(ctx context.Context) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "espn circuit breaker rejected request",
				"confederation", c.confederation,
				"state", c.breaker.State().String(),
			)
			return nil, fmt.Errorf("%w: standings source is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	raw, err := c.executeRequest(ctx, c.SourceURL())
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errESPNTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	return raw, err
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errESPNTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errESPNTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: source status=%d body=%s", errESPNTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("source status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("standings request failed")
	}
	c.logger.WarnContext(ctx, "espn request failed",
		"confederation", c.confederation,
		"url", fullURL,
		"error", lastErr,
	)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}
