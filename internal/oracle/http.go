package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxRetries      = 3
	retryDelay      = 3 * time.Second
	connectDeadline = 5 * time.Second
	totalDeadline   = 10 * time.Second
)

// subscribeRequest is the body posted to {apiPath}{subscriptionPath}.
type subscribeRequest struct {
	Exchange string `json:"exchange"`
	Market   string `json:"market"`
	DataType string `json:"data_type"`
}

type subscribeResponse struct {
	ChannelID string `json:"channel_id"`
}

// lastMessage is the shape of a market-monitor trade push.
type lastMessage struct {
	Type string `json:"type"`
	Data struct {
		Price float64 `json:"price"`
	} `json:"data"`
}

// HTTPClient is an Oracle backed by a market-monitor HTTP service. A market
// is subscribed once, by Subscribe or the first GetLastTradeOf call for it,
// and its channel id is cached; every price read is then a fresh
// get_last_message call. GetAllLastTrades covers only markets already
// subscribed this way. Grounded on the teacher repo's
// fetcher.CoinGeckoFetcher (bounded-deadline client, fetchWithRetry loop)
// and exchange.LocalFileProvider (symbol-keyed cache under a RWMutex, here
// holding channel ids), generalized from candles to single trade prices.
type HTTPClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter

	apiPath          string
	subscriptionPath string
	exchange         string

	mu       sync.RWMutex
	channels map[string]string // market -> channel id
}

// NewHTTPClient builds a market-monitor-backed oracle client. apiPath and
// subscriptionPath are concatenated to form the subscribe endpoint
// ({apiPath}{subscriptionPath}); exchangeName is sent as the "exchange"
// field on every subscribe call.
func NewHTTPClient(apiPath, subscriptionPath, exchangeName string) *HTTPClient {
	return &HTTPClient{
		httpClient:       &http.Client{Timeout: totalDeadline},
		limiter:          rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		apiPath:          apiPath,
		subscriptionPath: subscriptionPath,
		exchange:         exchangeName,
		channels:         make(map[string]string),
	}
}

// Subscribe registers interest in a market's trade feed, caching the
// returned channel id for subsequent polls.
func (c *HTTPClient) Subscribe(ctx context.Context, market string) error {
	c.mu.RLock()
	_, ok := c.channels[market]
	c.mu.RUnlock()
	if ok {
		return nil
	}

	body, err := json.Marshal(subscribeRequest{Exchange: c.exchange, Market: market, DataType: "trades"})
	if err != nil {
		return fmt.Errorf("oracle: encode subscribe body: %w", err)
	}

	endpoint := c.apiPath + c.subscriptionPath
	var resp subscribeResponse
	if err := c.doWithRetry(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return fmt.Errorf("oracle: subscribe %s: %w", market, err)
	}

	c.mu.Lock()
	c.channels[market] = resp.ChannelID
	c.mu.Unlock()
	return nil
}

// GetLastTradeOf returns the latest trade price for market, subscribing
// first if no channel is cached yet.
func (c *HTTPClient) GetLastTradeOf(ctx context.Context, market string) (float64, error) {
	if err := c.Subscribe(ctx, market); err != nil {
		return 0, err
	}

	c.mu.RLock()
	channel := c.channels[market]
	c.mu.RUnlock()

	var msg lastMessage
	endpoint := fmt.Sprintf("%s/channels/%s/last-message", c.apiPath, url.PathEscape(channel))
	if err := c.doWithRetry(ctx, http.MethodGet, endpoint, nil, &msg); err != nil {
		return 0, fmt.Errorf("oracle: last trade of %s: %w", market, err)
	}
	return msg.Data.Price, nil
}

// GetAllLastTrades fetches the last trade for every currently-subscribed market.
func (c *HTTPClient) GetAllLastTrades(ctx context.Context) (map[string]float64, error) {
	c.mu.RLock()
	markets := make([]string, 0, len(c.channels))
	for m := range c.channels {
		markets = append(markets, m)
	}
	c.mu.RUnlock()

	out := make(map[string]float64, len(markets))
	for _, m := range markets {
		price, err := c.GetLastTradeOf(ctx, m)
		if err != nil {
			return nil, err
		}
		out[m] = price
	}
	return out, nil
}

// doWithRetry performs an HTTP round trip with a bounded connect/total
// deadline and up to maxRetries attempts, mirroring the teacher's
// fetchWithRetry loop.
func (c *HTTPClient) doWithRetry(ctx context.Context, method, endpoint string, body []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, connectDeadline)
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(reqCtx, method, endpoint, reader)
		if err != nil {
			cancel()
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		cancel()
		if err != nil {
			lastErr = err
		} else {
			lastErr = decodeResponse(resp, out)
			if lastErr == nil {
				return nil
			}
		}

		if attempt < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
