// Package dex defines the narrow interfaces the fee liquidator needs from an
// AMM exchange: pool discovery, the router primitives (liquidity removal,
// quoting, swapping), asset-contract operations and native-balance custody.
// The EVM-backed implementation lives in dex/ethdex; tests run against an
// in-memory exchange.
package dex

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Registry locates AMM pools. Pool discovery is owned by the exchange's own
// registry contract; the liquidator only asks whether a pair pool exists.
type Registry interface {
	// GetPool returns the pool for the unordered asset pair (a, b).
	// The second return is false when no pool exists.
	GetPool(ctx context.Context, assetA, assetB common.Address) (common.Address, bool, error)
}

// Router exposes the exchange router primitives used by the liquidation
// pipeline. Mutating calls do not return the amounts the exchange settled;
// the controller reads its own held balances instead, which is the source of
// truth for every forwarding decision.
type Router interface {
	// RemoveLiquidity burns the given LP amount and pays out both underlying
	// assets to the receiver. minA/minB bound the acceptable payout per leg.
	RemoveLiquidity(ctx context.Context, assetA, assetB common.Address, liquidity, minA, minB *big.Int, to common.Address, deadline *big.Int) error

	// GetAmountsOut quotes the output amounts along path for amountIn.
	// The last element is the final output amount.
	GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error)

	// SwapExactTokensForTokens swaps amountIn along path, rejecting the call
	// if the output would fall below minOut or the deadline has passed.
	SwapExactTokensForTokens(ctx context.Context, amountIn, minOut *big.Int, path []common.Address, to common.Address, deadline *big.Int) error

	// RouterAddress is the spender granted allowances before router calls.
	RouterAddress() common.Address
}

// TokenOps covers the asset-contract calls made on behalf of the controller.
type TokenOps interface {
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error
	Transfer(ctx context.Context, token, to common.Address, amount *big.Int) error
}

// PairInfo reads the two underlying assets of an LP pair contract.
type PairInfo interface {
	UnderlyingAssets(ctx context.Context, pair common.Address) (asset0, asset1 common.Address, err error)
}

// Treasury is the controller account holding transient balances mid-batch
// plus whatever native currency has accrued to it.
type Treasury interface {
	// Self is the controller address: the holder of LP positions and of every
	// transient balance acquired mid-batch.
	Self() common.Address
	NativeBalance(ctx context.Context) (*big.Int, error)
	SendNative(ctx context.Context, to common.Address, amount *big.Int) error
}

// Exchange is the full collaborator surface a batch runs against.
type Exchange interface {
	Registry
	Router
	TokenOps
	PairInfo
	Treasury

	// Atomic runs fn as one atomic unit: either every mutation fn performs
	// commits, or none of it does. Implementations that cannot roll back
	// (a live chain submitting sequential transactions) must document their
	// fail-stop behavior instead.
	Atomic(ctx context.Context, fn func(Exchange) error) error
}
