package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/observability"
)

// fakeIndexer serves tokens[chainId] in pages according to first/skip.
func fakeIndexer(t *testing.T, tokens map[uint64][]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		chainID := uint64(req.Variables["chainId"].(float64))
		first := int(req.Variables["first"].(float64))
		skip := int(req.Variables["skip"].(float64))

		all := tokens[chainID]
		page := []map[string]any{}
		if skip < len(all) {
			page = all[skip:min(skip+first, len(all))]
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"tokens": page},
		})
	}))
}

func token(address, name, symbol string, pooled any) map[string]any {
	return map[string]any{
		"address":             address,
		"name":                name,
		"symbol":              symbol,
		"logoUrl":             "https://logos.example/" + symbol + ".png",
		"totalValuePooledUsd": pooled,
		"priceUsd":            "1.0001",
	}
}

func newTestClient(srv *httptest.Server, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithHTTPClient(srv.Client()),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5 * time.Millisecond),
		WithClock(func() time.Time { return time.UnixMilli(1704067200000) }),
	}
	return NewClient(srv.URL, append(base, opts...)...)
}

func TestFetchChainTokens_Pagination(t *testing.T) {
	srv := fakeIndexer(t, map[uint64][]map[string]any{
		1: {
			token("0xA0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "USD Coin", "USDC", "1500000.5"),
			token("0xdAC17F958D2ee523a2206206994597C13D831ec7", "Tether USD", "USDT", 900000),
			token("0x6B175474E89094C44Da98b954EedeAC495271d0F", "Dai Stablecoin", "DAI", "300000"),
			token("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", "Wrapped BTC", "WBTC", nil),
			token("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "Wrapped Ether", "WETH", ""),
		},
	})
	defer srv.Close()

	client := newTestClient(srv, WithPageSize(2))

	records, err := client.FetchChainTokens(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 5)

	first := records[0]
	assert.Equal(t, domain.TokenID("1-0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"), first.ID)
	assert.Equal(t, "0xA0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", first.Address)
	assert.Equal(t, "usd coin", first.NormalizedName)
	assert.Equal(t, "usdc", first.NormalizedSymbol)
	assert.Equal(t, 1500000.5, first.TotalValuePooledUsd)
	assert.Equal(t, 1.0001, first.PriceUsd)
	assert.Equal(t, int64(1704067200000), first.UpdatedAt)

	assert.Equal(t, 900000.0, records[1].TotalValuePooledUsd)
	assert.Equal(t, 0.0, records[3].TotalValuePooledUsd)
	assert.Equal(t, 0.0, records[4].TotalValuePooledUsd)
}

func TestFetchChainTokens_EmptyChain(t *testing.T) {
	srv := fakeIndexer(t, nil)
	defer srv.Close()

	records, err := newTestClient(srv).FetchChainTokens(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchChainTokens_SkipsTokensWithoutAddress(t *testing.T) {
	srv := fakeIndexer(t, map[uint64][]map[string]any{
		1: {token("", "Ghost", "GHO", 1), token("0xaa", "Real", "REAL", 2)},
	})
	defer srv.Close()

	records, err := newTestClient(srv).FetchChainTokens(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.TokenID("1-0xaa"), records[0].ID)
}

func TestQuery_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			fmt.Fprint(w, `{"data":{"tokens":[{"address":"0xaa","name":"A","symbol":"A","totalValuePooledUsd":"5"}]}}`)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv, WithMaxRetries(3))

	records, err := client.FetchChainTokens(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQuery_MaxRetriesExceeded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv, WithMaxRetries(2))

	_, err := client.FetchChainTokens(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}

func TestQuery_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, WithMaxRetries(3)).FetchChainTokens(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_GraphQLErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"errors":[{"message":"unknown field logoUrl"},{"message":"chain not indexed"}]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, WithMaxRetries(3)).FetchChainTokens(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "graphql: unknown field logoUrl; chain not indexed", err.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(srv, WithMaxRetries(5), WithRetryDelay(time.Second))
	_, err := client.FetchChainTokens(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchTokens_PreservesChainOrder(t *testing.T) {
	srv := fakeIndexer(t, map[uint64][]map[string]any{
		1:   {token("0x01", "Ether", "ETH", 3)},
		56:  {token("0x02", "BNB", "BNB", 2), token("0x03", "Ether", "ETH", 1)},
		137: {token("0x04", "Polygon", "POL", 1)},
	})
	defer srv.Close()

	client := newTestClient(srv, WithConcurrency(2))

	records, err := client.FetchTokens(context.Background(), []uint64{137, 1, 56})
	require.NoError(t, err)

	var ids []domain.TokenID
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []domain.TokenID{"137-0x04", "1-0x01", "56-0x02", "56-0x03"}, ids)
}

func TestFetchTokens_FailingChainFailsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Variables["chainId"].(float64) == 56 {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"data":{"tokens":[]}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchTokens(context.Background(), []uint64{1, 56})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain 56")
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestFetchChainTokens_RecordsMetrics(t *testing.T) {
	srv := fakeIndexer(t, map[uint64][]map[string]any{
		1: {token("0x01", "Ether", "ETH", 3), token("0x02", "USD Coin", "USDC", 2)},
	})
	defer srv.Close()

	m := observability.NewMetrics("test", prometheus.NewRegistry())
	client := newTestClient(srv, WithMetrics(m))

	_, err := client.FetchChainTokens(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokensFetched.WithLabelValues("1")))
}

func TestDecimal_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: `12.5`, want: 12.5},
		{in: `"12.5"`, want: 12.5},
		{in: `"1e3"`, want: 1000},
		{in: `null`, want: 0},
		{in: `""`, want: 0},
		{in: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d decimal
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, float64(d))
		})
	}
}
