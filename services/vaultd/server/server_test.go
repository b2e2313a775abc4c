package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"acre/core"
	"acre/crypto"
	"acre/native/token"
	"acre/native/vault"
)

var (
	owner      = crypto.BytesToAddress([]byte{0x01})
	treasury   = crypto.BytesToAddress([]byte{0x03})
	maintainer = crypto.BytesToAddress([]byte{0x04})
	alice      = crypto.BytesToAddress([]byte{0x0a})
)

func newTestNode(t *testing.T) *core.Node {
	t.Helper()
	node, err := core.NewNode(core.Config{
		Vault: vault.Config{
			Owner:       owner,
			Treasury:    treasury,
			EntryFeeBps: 5,
			ExitFeeBps:  10,
			AssetSymbol: "tBTC",
		},
		Maintainers: []crypto.Address{maintainer},
		Balances:    []core.GenesisBalance{{Account: alice, Amount: uint256.MustFromDecimal("3000000000000000000")}},
	})
	require.NoError(t, err)
	_, err = node.Apply("approve", func() error {
		return node.Asset().Approve(alice, node.Vault().Address(), token.MaxAllowance())
	})
	require.NoError(t, err)
	_, _, err = node.Deposit(alice, uint256.MustFromDecimal("1000000000000000000"), alice)
	require.NoError(t, err)
	return node
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestHealthz(t *testing.T) {
	h := New(newTestNode(t), nil, nil).Handler()
	res := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "ok", res.Body.String())
}

func TestVaultSummary(t *testing.T) {
	node := newTestNode(t)
	h := New(node, nil, nil).Handler()
	res := get(t, h, "/v1/vault")
	require.Equal(t, http.StatusOK, res.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, "999500249875062468", body["total_assets"])
	require.Equal(t, "999500249875062468", body["total_shares"])
	require.Equal(t, "STBTC", body["share_symbol"])
	require.Equal(t, node.Allocator().Address().String(), body["dispatcher"])
	require.Equal(t, false, body["paused"])
}

func TestAccountView(t *testing.T) {
	h := New(newTestNode(t), nil, nil).Handler()
	res := get(t, h, "/v1/vault/accounts/"+alice.String())
	require.Equal(t, http.StatusOK, res.Code)

	var body accountResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, alice, body.Address)
	require.Equal(t, "999500249875062468", body.Shares)
	require.Equal(t, "998501748126935532", body.MaxWithdraw)
	require.Equal(t, "2000000000000000000", body.AssetBalance)

	res = get(t, h, "/v1/vault/accounts/not-an-address")
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestPreview(t *testing.T) {
	h := New(newTestNode(t), nil, nil).Handler()
	res := get(t, h, "/v1/vault/preview/redeem/999500249875062468")
	require.Equal(t, http.StatusOK, res.Code)
	var body previewResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, "998501748126935532", body.Output)

	require.Equal(t, http.StatusNotFound, get(t, h, "/v1/vault/preview/borrow/1").Code)
	require.Equal(t, http.StatusBadRequest, get(t, h, "/v1/vault/preview/deposit/abc").Code)
}

func TestAllocatorView(t *testing.T) {
	node := newTestNode(t)
	_, _, err := node.Allocate(maintainer)
	require.NoError(t, err)

	h := New(node, nil, nil).Handler()
	res := get(t, h, "/v1/allocator")
	require.Equal(t, http.StatusOK, res.Code)
	var body allocatorResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, "999500249875062468", body.DepositBalance)
	require.Equal(t, body.DepositBalance, body.VenuePosition)
	require.Equal(t, []crypto.Address{maintainer}, body.Maintainers)
	require.Equal(t, node.Vault().Address(), body.Withdrawer)
}

func TestRateLimiterThrottles(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1}, nil)
	h := New(newTestNode(t), limiter, nil).Handler()

	require.Equal(t, http.StatusOK, get(t, h, "/v1/vault").Code)
	require.Equal(t, http.StatusTooManyRequests, get(t, h, "/v1/vault").Code)
	require.Equal(t, http.StatusOK, get(t, h, "/healthz").Code, "health checks bypass the limiter")
}

func TestClientIDPrefersForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	require.Equal(t, "10.0.0.1", clientID(req))
	req.Header.Set("X-Forwarded-For", "192.0.2.1, 10.0.0.2")
	require.Equal(t, "192.0.2.1", clientID(req))
	req.Header.Set("X-Real-IP", "198.51.100.7")
	require.Equal(t, "198.51.100.7", clientID(req))
}

func TestRequestsAreTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	srv := New(newTestNode(t), nil, nil)
	srv.SetTracer(provider.Tracer("test"))
	h := srv.Handler()

	res := get(t, h, "/v1/vault/preview/deposit/1000")
	require.Equal(t, http.StatusOK, res.Code)
	res = get(t, h, "/v1/vault/preview/burn/1000")
	require.Equal(t, http.StatusNotFound, res.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for i, want := range []int{http.StatusOK, http.StatusNotFound} {
		span := spans[i]
		require.Equal(t, "vaultd.preview", span.Name())
		attrs := map[string]string{}
		for _, kv := range span.Attributes() {
			attrs[string(kv.Key)] = kv.Value.Emit()
		}
		require.Equal(t, "/v1/vault/preview/{op}/{amount}", attrs["http.route"])
		require.Equal(t, strconv.Itoa(want), attrs["http.status_code"])
	}
}
