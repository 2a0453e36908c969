package collector

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	auth := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			payload, _ := io.ReadAll(r.Body)
			mac := hmac.New(sha512.New384, []byte(secret))
			mac.Write([]byte("/api" + r.URL.Path + r.Header.Get("bfx-nonce") + string(payload)))
			if r.Header.Get("bfx-signature") != hex.EncodeToString(mac.Sum(nil)) || r.Header.Get("bfx-apikey") != "key" {
				http.Error(w, `["error",10100,"apikey: invalid"]`, http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, body)
		}
	}
	mux.HandleFunc(walletsPath, auth(`[["funding","USD",1000,0,1000,null,null]]`))
	mux.HandleFunc(offersPath, auth(offersBody))
	mux.HandleFunc(loansPath, auth(`[]`))
	mux.HandleFunc("/v2/ticker/fUSD", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[0.0002,0.0001,30,1000,0.0003,2,500,0,0,0.00025,1,0.0004,0.00005]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(srv *httptest.Server, secret string) *BitfinexFetcher {
	return NewBitfinexFetcher(BitfinexParams{
		APIKey:    "key",
		APISecret: secret,
		AuthURL:   srv.URL,
		PublicURL: srv.URL,
	})
}

func TestBitfinexFetcher_SignedRequests(t *testing.T) {
	srv := newTestServer(t, "not-hex-secret")
	f := newTestFetcher(srv, "not-hex-secret")
	ctx := context.Background()

	balances, err := f.FetchWalletBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, balances["USD"])

	offers, err := f.FetchOpenOffers(ctx)
	require.NoError(t, err)
	assert.Len(t, offers["USD"], 1)
	assert.Len(t, offers["BTC"], 1)

	loans, err := f.FetchOpenLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, loans)

	ticker, err := f.FetchTicker(ctx, "USD")
	require.NoError(t, err)
	assert.InDelta(t, 7.3, ticker.FRRRatePercent, 1e-9)
}

func TestBitfinexFetcher_TransportErrorDegrades(t *testing.T) {
	srv := newTestServer(t, "right")
	f := newTestFetcher(srv, "wrong")

	balances, err := f.FetchWalletBalances(context.Background())
	require.Error(t, err)
	assert.NotNil(t, balances)
	assert.Empty(t, balances)

	_, err = f.FetchTicker(context.Background(), "XYZ")
	assert.Error(t, err)
}

func TestBitfinexFetcher_NonceIsMonotonic(t *testing.T) {
	f := NewBitfinexFetcher(BitfinexParams{APIKey: "k", APISecret: "s"})

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				n := f.nextNonce()
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1600)
}

func TestSecretBytes(t *testing.T) {
	assert.Equal(t, []byte{0xab, 0xcd}, secretBytes("abcd"))
	assert.Equal(t, []byte("abc"), secretBytes("abc"))
	assert.Equal(t, []byte("zz"), secretBytes("zz"))
}
