package router_test

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexkeeper/fee-liquidator/dex"
)

// addresses used across the router tests
var (
	ownerAddr     = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	strangerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000AB")
	controller    = common.HexToAddress("0x00000000000000000000000000000000000000C0")
	routerAddr    = common.HexToAddress("0x00000000000000000000000000000000000000D0")
	recipientAddr = common.HexToAddress("0x00000000000000000000000000000000000000E0")

	assetA  = common.HexToAddress("0x0000000000000000000000000000000000000A01")
	assetB  = common.HexToAddress("0x0000000000000000000000000000000000000A02")
	assetT  = common.HexToAddress("0x0000000000000000000000000000000000000A03") // target
	assetM1 = common.HexToAddress("0x0000000000000000000000000000000000000B01")
	assetM2 = common.HexToAddress("0x0000000000000000000000000000000000000B02")

	pairAB = common.HexToAddress("0x0000000000000000000000000000000000000F01")
	pairAT = common.HexToAddress("0x0000000000000000000000000000000000000F02")
)

type pairKey struct{ lo, hi common.Address }

func keyFor(a, b common.Address) pairKey {
	if a.Hex() > b.Hex() {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// mockExchange is an in-memory exchange with real balance accounting,
// allowance checks and snapshot-based atomicity. Quotes are 1:1 unless a
// test overrides quoteFn, so expected output always equals the input amount.
type mockExchange struct {
	self   common.Address
	router common.Address

	pools      map[pairKey]common.Address
	pairAssets map[common.Address][2]common.Address
	// payout per full LP balance burned, credited to the receiver
	pairPayouts map[common.Address][2]*big.Int

	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
	native     *big.Int
	nativeSent map[common.Address]*big.Int

	quoteFn  func(amountIn *big.Int, path []common.Address) []*big.Int
	failSwap error

	sequence []string
	calls    map[string]int
	// deadlines observed on router calls, in order
	deadlines []*big.Int
	// minOut values passed to swaps, in order
	swapMinOuts []*big.Int
	// swap destinations, in order
	swapRecipients []common.Address
	unwound        []common.Address
}

func newMockExchange() *mockExchange {
	return &mockExchange{
		self:        controller,
		router:      routerAddr,
		pools:       map[pairKey]common.Address{},
		pairAssets:  map[common.Address][2]common.Address{},
		pairPayouts: map[common.Address][2]*big.Int{},
		balances:    map[common.Address]map[common.Address]*big.Int{},
		allowances:  map[common.Address]map[common.Address]*big.Int{},
		native:      new(big.Int),
		nativeSent:  map[common.Address]*big.Int{},
		calls:       map[string]int{},
	}
}

func (m *mockExchange) record(call string) {
	m.sequence = append(m.sequence, call)
	m.calls[call]++
}

func (m *mockExchange) addPool(a, b common.Address) {
	pool := common.BigToAddress(big.NewInt(int64(len(m.pools) + 0xF100)))
	m.pools[keyFor(a, b)] = pool
}

// addPair registers an LP pair contract with its payout on full unwind and
// credits the controller with the LP balance.
func (m *mockExchange) addPair(pair, asset0, asset1 common.Address, liquidity, payout0, payout1 *big.Int) {
	m.pairAssets[pair] = [2]common.Address{asset0, asset1}
	m.pairPayouts[pair] = [2]*big.Int{payout0, payout1}
	m.pools[keyFor(asset0, asset1)] = pair
	m.setBalance(pair, m.self, liquidity)
}

func (m *mockExchange) setBalance(token, holder common.Address, amount *big.Int) {
	if m.balances[token] == nil {
		m.balances[token] = map[common.Address]*big.Int{}
	}
	m.balances[token][holder] = new(big.Int).Set(amount)
}

func (m *mockExchange) balance(token, holder common.Address) *big.Int {
	if m.balances[token] == nil || m.balances[token][holder] == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(m.balances[token][holder])
}

func (m *mockExchange) credit(token, holder common.Address, amount *big.Int) {
	m.setBalance(token, holder, new(big.Int).Add(m.balance(token, holder), amount))
}

func (m *mockExchange) debit(token, holder common.Address, amount *big.Int) error {
	held := m.balance(token, holder)
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient %s balance: have %s, need %s", token.Hex(), held, amount)
	}
	m.setBalance(token, holder, held.Sub(held, amount))
	return nil
}

func (m *mockExchange) spendAllowance(token, spender common.Address, amount *big.Int) error {
	if m.allowances[token] == nil || m.allowances[token][spender] == nil ||
		m.allowances[token][spender].Cmp(amount) < 0 {
		return fmt.Errorf("insufficient allowance on %s", token.Hex())
	}
	m.allowances[token][spender].Sub(m.allowances[token][spender], amount)
	return nil
}

// --- dex.Exchange implementation ---

func (m *mockExchange) GetPool(_ context.Context, a, b common.Address) (common.Address, bool, error) {
	m.record("getPool")
	pool, ok := m.pools[keyFor(a, b)]
	return pool, ok, nil
}

func (m *mockExchange) RemoveLiquidity(_ context.Context, assetA, assetB common.Address, liquidity, minA, minB *big.Int, to common.Address, deadline *big.Int) error {
	m.record("removeLiquidity")
	m.deadlines = append(m.deadlines, deadline)

	pair, ok := m.pools[keyFor(assetA, assetB)]
	if !ok {
		return fmt.Errorf("no pair for %s/%s", assetA.Hex(), assetB.Hex())
	}
	if liquidity.Sign() == 0 {
		return fmt.Errorf("insufficient liquidity burned")
	}
	if err := m.spendAllowance(pair, m.router, liquidity); err != nil {
		return err
	}
	if err := m.debit(pair, m.self, liquidity); err != nil {
		return err
	}

	payouts := m.pairPayouts[pair]
	assets := m.pairAssets[pair]
	if payouts[0].Cmp(minA) < 0 || payouts[1].Cmp(minB) < 0 {
		return fmt.Errorf("payout below minimum")
	}
	m.credit(assets[0], to, payouts[0])
	m.credit(assets[1], to, payouts[1])
	m.unwound = append(m.unwound, pair)
	return nil
}

func (m *mockExchange) GetAmountsOut(_ context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	m.record("quote")
	return m.quote(amountIn, path)
}

func (m *mockExchange) quote(amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	for i := 0; i+1 < len(path); i++ {
		if _, ok := m.pools[keyFor(path[i], path[i+1])]; !ok {
			return nil, fmt.Errorf("no pool for hop %s -> %s", path[i].Hex(), path[i+1].Hex())
		}
	}
	if m.quoteFn != nil {
		return m.quoteFn(amountIn, path), nil
	}
	amounts := make([]*big.Int, len(path))
	for i := range amounts {
		amounts[i] = new(big.Int).Set(amountIn)
	}
	return amounts, nil
}

func (m *mockExchange) SwapExactTokensForTokens(_ context.Context, amountIn, minOut *big.Int, path []common.Address, to common.Address, deadline *big.Int) error {
	m.record("swap")
	m.deadlines = append(m.deadlines, deadline)
	m.swapMinOuts = append(m.swapMinOuts, new(big.Int).Set(minOut))
	m.swapRecipients = append(m.swapRecipients, to)

	if m.failSwap != nil {
		return m.failSwap
	}
	amounts, err := m.quote(amountIn, path)
	if err != nil {
		return err
	}
	out := amounts[len(amounts)-1]
	if out.Cmp(minOut) < 0 {
		return fmt.Errorf("output below minimum: %s < %s", out, minOut)
	}
	if err := m.spendAllowance(path[0], m.router, amountIn); err != nil {
		return err
	}
	if err := m.debit(path[0], m.self, amountIn); err != nil {
		return err
	}
	m.credit(path[len(path)-1], to, out)
	return nil
}

func (m *mockExchange) RouterAddress() common.Address {
	return m.router
}

func (m *mockExchange) BalanceOf(_ context.Context, token, holder common.Address) (*big.Int, error) {
	m.record("balanceOf")
	return m.balance(token, holder), nil
}

func (m *mockExchange) Approve(_ context.Context, token, spender common.Address, amount *big.Int) error {
	m.record("approve")
	if m.allowances[token] == nil {
		m.allowances[token] = map[common.Address]*big.Int{}
	}
	m.allowances[token][spender] = new(big.Int).Set(amount)
	return nil
}

func (m *mockExchange) Transfer(_ context.Context, token, to common.Address, amount *big.Int) error {
	m.record("transfer")
	if err := m.debit(token, m.self, amount); err != nil {
		return err
	}
	m.credit(token, to, amount)
	return nil
}

func (m *mockExchange) UnderlyingAssets(_ context.Context, pair common.Address) (common.Address, common.Address, error) {
	m.record("underlyingAssets")
	assets, ok := m.pairAssets[pair]
	if !ok {
		return common.Address{}, common.Address{}, fmt.Errorf("unknown pair %s", pair.Hex())
	}
	return assets[0], assets[1], nil
}

func (m *mockExchange) Self() common.Address {
	return m.self
}

func (m *mockExchange) NativeBalance(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(m.native), nil
}

func (m *mockExchange) SendNative(_ context.Context, to common.Address, amount *big.Int) error {
	if m.native.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient native balance")
	}
	m.native.Sub(m.native, amount)
	prev := m.nativeSent[to]
	if prev == nil {
		prev = new(big.Int)
	}
	m.nativeSent[to] = new(big.Int).Add(prev, amount)
	return nil
}

// Atomic snapshots all state and rolls back when fn fails, mirroring the
// whole-call atomicity of an on-chain execution environment.
func (m *mockExchange) Atomic(_ context.Context, fn func(dex.Exchange) error) error {
	balances := snapshotNested(m.balances)
	allowances := snapshotNested(m.allowances)
	native := new(big.Int).Set(m.native)
	unwound := append([]common.Address(nil), m.unwound...)

	if err := fn(m); err != nil {
		m.balances = balances
		m.allowances = allowances
		m.native = native
		m.unwound = unwound
		return err
	}
	return nil
}

func snapshotNested(src map[common.Address]map[common.Address]*big.Int) map[common.Address]map[common.Address]*big.Int {
	out := make(map[common.Address]map[common.Address]*big.Int, len(src))
	for token, holders := range src {
		inner := make(map[common.Address]*big.Int, len(holders))
		for holder, amount := range holders {
			inner[holder] = new(big.Int).Set(amount)
		}
		out[token] = inner
	}
	return out
}

var _ dex.Exchange = (*mockExchange)(nil)
