package rpc_test

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/assert"

	"github.com/dexkeeper/fee-liquidator/dex"
	"github.com/dexkeeper/fee-liquidator/liquidator/config"
	"github.com/dexkeeper/fee-liquidator/liquidator/manager"
	"github.com/dexkeeper/fee-liquidator/liquidator/router"
	"github.com/dexkeeper/fee-liquidator/liquidator/rpc"
)

var (
	ownerAddr     = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	strangerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000AB")
	controller    = common.HexToAddress("0x00000000000000000000000000000000000000C0")
	recipientAddr = common.HexToAddress("0x00000000000000000000000000000000000000E0")
	positionAddr  = common.HexToAddress("0x0000000000000000000000000000000000000F01")
	asset0        = common.HexToAddress("0x0000000000000000000000000000000000000A01")
	asset1        = common.HexToAddress("0x0000000000000000000000000000000000000A02")
)

// stubExchange supports split-only batches and native sweeps, which is all
// the HTTP tests exercise. Conversion paths are covered in the router tests.
type stubExchange struct {
	liquidity *big.Int
	native    *big.Int
	payouts   map[common.Address]map[common.Address]*big.Int
	swept     map[common.Address]*big.Int
}

func newStubExchange() *stubExchange {
	return &stubExchange{
		liquidity: big.NewInt(1_000),
		native:    new(big.Int),
		payouts:   map[common.Address]map[common.Address]*big.Int{},
		swept:     map[common.Address]*big.Int{},
	}
}

func (s *stubExchange) GetPool(context.Context, common.Address, common.Address) (common.Address, bool, error) {
	return common.Address{}, false, nil
}

func (s *stubExchange) RemoveLiquidity(_ context.Context, a, b common.Address, liquidity, _, _ *big.Int, to common.Address, _ *big.Int) error {
	if liquidity.Sign() == 0 {
		return fmt.Errorf("insufficient liquidity burned")
	}
	if s.payouts[to] == nil {
		s.payouts[to] = map[common.Address]*big.Int{}
	}
	s.payouts[to][a] = big.NewInt(400)
	s.payouts[to][b] = big.NewInt(600)
	s.liquidity = new(big.Int)
	return nil
}

func (s *stubExchange) GetAmountsOut(_ context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	return nil, fmt.Errorf("no pools configured")
}

func (s *stubExchange) SwapExactTokensForTokens(context.Context, *big.Int, *big.Int, []common.Address, common.Address, *big.Int) error {
	return fmt.Errorf("no pools configured")
}

func (s *stubExchange) RouterAddress() common.Address { return common.Address{} }

func (s *stubExchange) BalanceOf(_ context.Context, token, _ common.Address) (*big.Int, error) {
	if token == positionAddr {
		return new(big.Int).Set(s.liquidity), nil
	}
	return new(big.Int), nil
}

func (s *stubExchange) Approve(context.Context, common.Address, common.Address, *big.Int) error {
	return nil
}

func (s *stubExchange) Transfer(context.Context, common.Address, common.Address, *big.Int) error {
	return nil
}

func (s *stubExchange) UnderlyingAssets(_ context.Context, pair common.Address) (common.Address, common.Address, error) {
	if pair != positionAddr {
		return common.Address{}, common.Address{}, fmt.Errorf("unknown pair %s", pair.Hex())
	}
	return asset0, asset1, nil
}

func (s *stubExchange) Self() common.Address { return controller }

func (s *stubExchange) NativeBalance(context.Context) (*big.Int, error) {
	return new(big.Int).Set(s.native), nil
}

func (s *stubExchange) SendNative(_ context.Context, to common.Address, amount *big.Int) error {
	s.native.Sub(s.native, amount)
	s.swept[to] = new(big.Int).Set(amount)
	return nil
}

func (s *stubExchange) Atomic(_ context.Context, fn func(dex.Exchange) error) error {
	return fn(s)
}

var _ dex.Exchange = (*stubExchange)(nil)

func newTestServer(t *testing.T, x dex.Exchange) *rpc.Server {
	t.Helper()
	store, err := manager.NewStore(ownerAddr, []common.Address{asset0}, 990)
	assert.NoError(t, err)
	liq := router.NewLiquidator(store, x)

	cfg := &config.ServiceConfig{
		Port:           8080,
		Host:           "127.0.0.1",
		AllowedOrigins: []string{"*"},
		AdminTokens: []config.AdminToken{
			{Token: "owner-token", Principal: ownerAddr.Hex()},
			{Token: "viewer-token", Principal: strangerAddr.Hex()},
		},
	}
	return rpc.NewServer(cfg, liq, store)
}

func do(t *testing.T, srv *rpc.Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAPI_RejectsMissingToken(t *testing.T) {
	srv := newTestServer(t, newStubExchange())
	rec := do(t, srv, http.MethodGet, "/v1/config", "", "")
	assert.Equal(t, rec.Code, http.StatusUnauthorized)
}

func TestAPI_RejectsUnknownToken(t *testing.T) {
	srv := newTestServer(t, newStubExchange())
	rec := do(t, srv, http.MethodGet, "/v1/config", "bogus", "")
	assert.Equal(t, rec.Code, http.StatusUnauthorized)
}

func TestAPI_NonOwnerTokenForbidden(t *testing.T) {
	srv := newTestServer(t, newStubExchange())
	rec := do(t, srv, http.MethodPost, "/v1/config/slippage", "viewer-token", `{"slippage":500}`)
	assert.Equal(t, rec.Code, http.StatusForbidden)
}

func TestAPI_ProcessBatchSplitOnly(t *testing.T) {
	x := newStubExchange()
	srv := newTestServer(t, x)

	body := fmt.Sprintf(`{"positions":[%q],"recipient":%q}`, positionAddr.Hex(), recipientAddr.Hex())
	rec := do(t, srv, http.MethodPost, "/v1/batch", "owner-token", body)
	assert.Equal(t, rec.Code, http.StatusOK)

	assert.Equal(t, x.payouts[recipientAddr][asset0].Int64(), int64(400))
	assert.Equal(t, x.payouts[recipientAddr][asset1].Int64(), int64(600))
	assert.True(t, strings.Contains(rec.Body.String(), strings.ToLower(recipientAddr.Hex())))
}

func TestAPI_ProcessBatchRejectsEmptyPositions(t *testing.T) {
	srv := newTestServer(t, newStubExchange())
	rec := do(t, srv, http.MethodPost, "/v1/batch", "owner-token",
		fmt.Sprintf(`{"positions":[],"recipient":%q}`, recipientAddr.Hex()))
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestAPI_ProcessBatchRejectsBadAddress(t *testing.T) {
	srv := newTestServer(t, newStubExchange())
	rec := do(t, srv, http.MethodPost, "/v1/batch", "owner-token",
		fmt.Sprintf(`{"positions":["not-an-address"],"recipient":%q}`, recipientAddr.Hex()))
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestAPI_ProcessBatchAbortReported(t *testing.T) {
	srv := newTestServer(t, newStubExchange())
	// unknown position makes the batch abort inside the exchange
	unknown := common.HexToAddress("0x0000000000000000000000000000000000000F99")
	rec := do(t, srv, http.MethodPost, "/v1/batch", "owner-token",
		fmt.Sprintf(`{"positions":[%q],"recipient":%q}`, unknown.Hex(), recipientAddr.Hex()))
	assert.Equal(t, rec.Code, http.StatusBadGateway)
}

func TestAPI_SetSlippage(t *testing.T) {
	srv := newTestServer(t, newStubExchange())
	rec := do(t, srv, http.MethodPost, "/v1/config/slippage", "owner-token", `{"slippage":750}`)
	assert.Equal(t, rec.Code, http.StatusOK)

	rec = do(t, srv, http.MethodGet, "/v1/config", "owner-token", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.True(t, strings.Contains(rec.Body.String(), `"slippage":750`))
}

func TestAPI_SetSlippageOutOfRange(t *testing.T) {
	srv := newTestServer(t, newStubExchange())
	rec := do(t, srv, http.MethodPost, "/v1/config/slippage", "owner-token", `{"slippage":1001}`)
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestAPI_SetIntermediates(t *testing.T) {
	srv := newTestServer(t, newStubExchange())
	rec := do(t, srv, http.MethodPost, "/v1/config/intermediates", "owner-token",
		fmt.Sprintf(`{"paths":[%q,%q]}`, asset0.Hex(), asset1.Hex()))
	assert.Equal(t, rec.Code, http.StatusOK)

	rec = do(t, srv, http.MethodGet, "/v1/config", "owner-token", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.True(t, strings.Contains(rec.Body.String(), asset1.Hex()))
}

func TestAPI_SweepNative(t *testing.T) {
	x := newStubExchange()
	x.native = big.NewInt(2_500)
	srv := newTestServer(t, x)

	rec := do(t, srv, http.MethodPost, "/v1/sweep", "owner-token",
		fmt.Sprintf(`{"to":%q}`, recipientAddr.Hex()))
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, x.swept[recipientAddr].Int64(), int64(2_500))
	assert.Equal(t, x.native.Int64(), int64(0))
}

func TestAPI_HealthAndReadyAreOpen(t *testing.T) {
	srv := newTestServer(t, newStubExchange())
	for _, path := range []string{"/health", "/ready"} {
		rec := do(t, srv, http.MethodGet, path, "", "")
		assert.Equal(t, rec.Code, http.StatusOK)
	}
}
