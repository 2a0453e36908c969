package collector

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"FundingSentinel/internal/metrics"
	"FundingSentinel/internal/model"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultAuthURL   = "https://api.bitfinex.com"
	DefaultPublicURL = "https://api-pub.bitfinex.com"

	walletsPath = "/v2/auth/r/wallets"
	offersPath  = "/v2/auth/r/funding/offers"
	loansPath   = "/v2/auth/r/funding/loans"

	fundingListLimit = 100
)

// BitfinexFetcher implements Fetcher against the Bitfinex v2 REST API.
// The only mutable state is the nonce counter and the rate limiter.
type BitfinexFetcher struct {
	AuthURL   string
	PublicURL string
	Client    *http.Client

	apiKey    string
	apiSecret []byte
	limiter   *rate.Limiter
	lastNonce atomic.Int64
}

// BitfinexParams configures a BitfinexFetcher.
type BitfinexParams struct {
	APIKey         string
	APISecret      string
	AuthURL        string
	PublicURL      string
	Proxy          string
	RequestsPerMin int
}

// NewBitfinexFetcher creates a fetcher with optional proxy support.
func NewBitfinexFetcher(p BitfinexParams) *BitfinexFetcher {
	transport := &http.Transport{}
	if p.Proxy != "" {
		if u, err := url.Parse(p.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if p.AuthURL == "" {
		p.AuthURL = DefaultAuthURL
	}
	if p.PublicURL == "" {
		p.PublicURL = DefaultPublicURL
	}
	limit := rate.Inf
	if p.RequestsPerMin > 0 {
		limit = rate.Every(time.Minute / time.Duration(p.RequestsPerMin))
	}
	return &BitfinexFetcher{
		AuthURL:   p.AuthURL,
		PublicURL: p.PublicURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		apiKey:    p.APIKey,
		apiSecret: secretBytes(p.APISecret),
		limiter:   rate.NewLimiter(limit, 1),
	}
}

func (f *BitfinexFetcher) Name() string { return "bitfinex" }

func (f *BitfinexFetcher) FetchWalletBalances(ctx context.Context) (model.WalletBalances, error) {
	body, err := f.authPost(ctx, walletsPath, nil)
	if err != nil {
		return model.WalletBalances{}, fmt.Errorf("fetch wallets: %w", err)
	}
	return decodeWallets(body), nil
}

func (f *BitfinexFetcher) FetchOpenOffers(ctx context.Context) (model.OffersByCurrency, error) {
	body, err := f.authPost(ctx, offersPath, map[string]any{"limit": fundingListLimit})
	if err != nil {
		return model.OffersByCurrency{}, fmt.Errorf("fetch offers: %w", err)
	}
	return decodeFundingList(body, "offer"), nil
}

func (f *BitfinexFetcher) FetchOpenLoans(ctx context.Context) (model.OffersByCurrency, error) {
	body, err := f.authPost(ctx, loansPath, map[string]any{"limit": fundingListLimit})
	if err != nil {
		return model.OffersByCurrency{}, fmt.Errorf("fetch loans: %w", err)
	}
	return decodeFundingList(body, "loan"), nil
}

func (f *BitfinexFetcher) FetchTicker(ctx context.Context, currency model.CurrencyCode) (model.Ticker, error) {
	endpoint := fmt.Sprintf("%s/v2/ticker/%s%s", f.PublicURL, fundingMarker, url.PathEscape(currency))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Ticker{}, err
	}
	body, err := f.do(req, "ticker")
	if err != nil {
		return model.Ticker{}, fmt.Errorf("fetch ticker %s: %w", currency, err)
	}
	ticker, err := decodeTicker(gjson.ParseBytes(body))
	if err != nil {
		return model.Ticker{}, fmt.Errorf("decode ticker %s: %w", currency, err)
	}
	return ticker, nil
}

// authPost signs the request the way Bitfinex v2 expects:
// HMAC-SHA384 over "/api" + path + nonce + body.
func (f *BitfinexFetcher) authPost(ctx context.Context, path string, params map[string]any) ([]byte, error) {
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	nonce := strconv.FormatInt(f.nextNonce(), 10)
	mac := hmac.New(sha512.New384, f.apiSecret)
	mac.Write([]byte("/api" + path + nonce + string(payload)))
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.AuthURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("bfx-nonce", nonce)
	req.Header.Set("bfx-apikey", f.apiKey)
	req.Header.Set("bfx-signature", signature)

	return f.do(req, path)
}

func (f *BitfinexFetcher) do(req *http.Request, endpoint string) ([]byte, error) {
	if err := f.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		metrics.ExchangeRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ExchangeRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ExchangeRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(string(body), 200))
	}
	metrics.ExchangeRequests.WithLabelValues(endpoint, "ok").Inc()
	return body, nil
}

// nextNonce returns a strictly increasing microsecond timestamp, even under
// concurrent callers.
func (f *BitfinexFetcher) nextNonce() int64 {
	for {
		last := f.lastNonce.Load()
		next := time.Now().UnixMicro()
		if next <= last {
			next = last + 1
		}
		if f.lastNonce.CompareAndSwap(last, next) {
			return next
		}
	}
}

// secretBytes decodes even-length hex secrets, otherwise uses the raw string.
func secretBytes(secret string) []byte {
	if secret != "" && len(secret)%2 == 0 {
		if b, err := hex.DecodeString(secret); err == nil {
			return b
		}
	}
	return []byte(secret)
}
