package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aimeeyu8/Tastebuddy/config"
	"github.com/aimeeyu8/Tastebuddy/metrics"
	"github.com/aimeeyu8/Tastebuddy/models"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var ErrMissingAPIKey = errors.New("serpapi api key is not set (SERPAPI_API_KEY)")

const (
	maxStart      = 50
	defaultLimit  = 10
	breakerName   = "serpapi"
	sortRecommend = "recommended"
)

// Cache stores search results and menu texts between calls. Implementations
// report a miss with ok false and a nil error.
type Cache interface {
	Search(ctx context.Context, key string) (restaurants []models.Restaurant, ok bool, err error)
	StoreSearch(ctx context.Context, key string, restaurants []models.Restaurant) error
	Menu(ctx context.Context, placeID string) (texts []string, ok bool, err error)
	StoreMenu(ctx context.Context, placeID string, texts []string) error
}

// Client talks to the SerpAPI Yelp engines.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	flight  singleflight.Group

	cache  Cache
	logger *slog.Logger
}

// NewClient builds a client from cfg. cache may be nil.
func NewClient(cfg config.SerpAPI, cache Cache, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(limit, burst),
		cache:      cache,
		logger:     logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return c, nil
}

// Search returns up to limit restaurants for term near location, paging
// through the provider until enough results arrive or the provider runs dry.
func (c *Client) Search(ctx context.Context, term, location string, limit int) ([]models.Restaurant, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	key := searchKey(term, location, limit)

	if cached, ok := c.cachedSearch(ctx, key); ok {
		metrics.RecordSearch("cache_hit")
		return cached, nil
	}

	restaurants := make([]models.Restaurant, 0, limit)
	for start := 0; len(restaurants) < limit && start <= maxStart; {
		params := url.Values{}
		params.Set("engine", "yelp")
		params.Set("find_desc", term)
		params.Set("find_loc", location)
		params.Set("start", strconv.Itoa(start))
		params.Set("sortby", sortRecommend)

		var resp searchResponse
		if err := c.get(ctx, params, &resp); err != nil {
			metrics.RecordSearch("error")
			c.logger.Error("yelp search failed", "term", term, "location", location, "start", start, "error", err)
			return nil, fmt.Errorf("yelp search: %w", err)
		}
		if len(resp.OrganicResults) == 0 {
			if resp.Error != "" {
				c.logger.Debug("yelp search returned no results", "term", term, "reason", resp.Error)
			}
			break
		}

		for _, raw := range resp.OrganicResults {
			restaurants = append(restaurants, raw.normalize())
			if len(restaurants) >= limit {
				break
			}
		}
		start += len(resp.OrganicResults)
	}

	metrics.RecordSearch("fetched")
	if c.cache != nil {
		if err := c.cache.StoreSearch(ctx, key, restaurants); err != nil {
			c.logger.Warn("failed to cache search", "key", key, "error", err)
		}
	}

	return restaurants, nil
}

// MenuTexts returns one text per menu item of a place. Places without a menu
// fall back to their review snippets, which may be empty as well.
func (c *Client) MenuTexts(ctx context.Context, placeID string) ([]string, error) {
	if placeID == "" {
		return nil, nil
	}

	if c.cache != nil {
		texts, ok, err := c.cache.Menu(ctx, placeID)
		if err != nil {
			c.logger.Warn("failed to read cached menu", "place_id", placeID, "error", err)
		} else if ok {
			return texts, nil
		}
	}

	params := url.Values{}
	params.Set("engine", "yelp_place")
	params.Set("place_id", placeID)
	params.Set("full_menu", "true")

	var place map[string]any
	if err := c.get(ctx, params, &place); err != nil {
		return nil, fmt.Errorf("yelp place %s: %w", placeID, err)
	}

	texts := extractMenuTexts(place)
	if len(texts) == 0 {
		reviews, err := c.reviewTexts(ctx, placeID)
		if err != nil {
			c.logger.Warn("failed to fetch reviews", "place_id", placeID, "error", err)
		}
		texts = reviews
	}

	if c.cache != nil {
		if err := c.cache.StoreMenu(ctx, placeID, texts); err != nil {
			c.logger.Warn("failed to cache menu", "place_id", placeID, "error", err)
		}
	}

	return texts, nil
}

func (c *Client) reviewTexts(ctx context.Context, placeID string) ([]string, error) {
	params := url.Values{}
	params.Set("engine", "yelp_reviews")
	params.Set("place_id", placeID)

	var resp reviewsResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	var texts []string
	for _, r := range resp.Reviews {
		body := r.Snippet
		if body == "" {
			body = r.Body
		}
		if body = strings.TrimSpace(body); body != "" {
			texts = append(texts, body)
		}
	}
	return texts, nil
}

func (c *Client) cachedSearch(ctx context.Context, key string) ([]models.Restaurant, bool) {
	if c.cache == nil {
		return nil, false
	}
	restaurants, ok, err := c.cache.Search(ctx, key)
	if err != nil {
		c.logger.Warn("failed to read cached search", "key", key, "error", err)
		return nil, false
	}
	return restaurants, ok
}

// get performs one rate limited, breaker guarded request. Identical requests
// in flight share a single upstream call.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	key := params.Encode()

	v, err, _ := c.flight.Do(key, func() (any, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.breaker.Execute(func() ([]byte, error) {
			return c.do(ctx, params)
		})
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(v.([]byte), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func searchKey(term, location string, limit int) string {
	return fmt.Sprintf("%s|%s|%d", strings.ToLower(strings.TrimSpace(term)), strings.ToLower(strings.TrimSpace(location)), limit)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
