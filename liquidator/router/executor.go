package router

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexkeeper/fee-liquidator/dex"
	"github.com/dexkeeper/fee-liquidator/liquidator/manager"
	"github.com/dexkeeper/fee-liquidator/liquidator/models"
)

// Executor carries out a single conversion: quote the exchange, bound the
// acceptable output by the configured slippage, then execute. This ordering
// is the safety-critical part of the pipeline and must not be rearranged.
type Executor struct {
	exchange dex.Exchange
	store    *manager.Store
	resolver *Resolver
	now      func() time.Time
}

// NewExecutor creates an executor over the given exchange. The clock is
// injectable for deterministic deadline tests; nil means time.Now.
func NewExecutor(exchange dex.Exchange, store *manager.Store, resolver *Resolver, now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{exchange: exchange, store: store, resolver: resolver, now: now}
}

// MinOutput computes the minimum acceptable swap output for a quoted
// expected amount: expected * slippage / SlippageScale, truncating. A
// slippage of SlippageScale demands the full quote; zero disables the bound.
func MinOutput(expected *big.Int, slippage uint64) *big.Int {
	minOut := new(big.Int).Mul(expected, new(big.Int).SetUint64(slippage))
	return minOut.Quo(minOut, big.NewInt(manager.SlippageScale))
}

// Forward converts the controller's full held balance of asset into output
// and sends it to recipient. When asset already is the output asset the
// balance is transferred directly, with no exchange involvement.
func (e *Executor) Forward(ctx context.Context, asset, output, recipient common.Address) error {
	held, err := e.exchange.BalanceOf(ctx, asset, e.exchange.Self())
	if err != nil {
		return fmt.Errorf("failed to read held balance of %s: %w", asset.Hex(), err)
	}
	if held.Sign() == 0 {
		routerLog.Debug().Str("asset", asset.Hex()).Msg("Nothing held, skipping")
		return nil
	}

	if asset == output {
		routerLog.Info().
			Str("asset", asset.Hex()).
			Str("recipient", recipient.Hex()).
			Str("amount", held.String()).
			Msg("Output asset already held, transferring directly")
		if err := e.exchange.Transfer(ctx, asset, recipient, held); err != nil {
			return fmt.Errorf("direct transfer of %s failed: %w", asset.Hex(), err)
		}
		return nil
	}

	route, err := e.resolver.Resolve(ctx, asset, output)
	if err != nil {
		return err
	}
	return e.Execute(ctx, held, route, recipient)
}

// Execute swaps amountIn along route to recipient. The expected output is
// quoted first, the minimum bound derived from it, and only then is the
// exchange authorized and called; a rejection (output below the bound,
// deadline passed) is fatal and never retried.
func (e *Executor) Execute(ctx context.Context, amountIn *big.Int, route Route, recipient common.Address) error {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return fmt.Errorf("swap amount must be positive, got %v", amountIn)
	}

	path := route.Path()
	amounts, err := e.exchange.GetAmountsOut(ctx, amountIn, path)
	if err != nil {
		return fmt.Errorf("quote failed for %s route: %w", route.Kind, err)
	}
	if len(amounts) == 0 {
		return fmt.Errorf("quote returned no amounts for %s route", route.Kind)
	}
	expected := amounts[len(amounts)-1]

	slippage := e.store.Slippage()
	minOut := MinOutput(expected, slippage)

	if err := e.exchange.Approve(ctx, route.Source, e.exchange.RouterAddress(), amountIn); err != nil {
		return fmt.Errorf("approval of %s failed: %w", route.Source.Hex(), err)
	}

	deadline := big.NewInt(e.now().Add(deadlineWindow).Unix())
	routerLog.Info().
		Str("kind", route.Kind.String()).
		Str("source", route.Source.Hex()).
		Str("dest", route.Dest.Hex()).
		Str("amountIn", amountIn.String()).
		Str("expected", expected.String()).
		Str("minOut", minOut.String()).
		Str("boundRatio", models.BoundRatio(minOut, expected)).
		Msg("Executing swap")

	if err := e.exchange.SwapExactTokensForTokens(ctx, amountIn, minOut, path, recipient, deadline); err != nil {
		return fmt.Errorf("swap failed for %s route: %w", route.Kind, err)
	}
	return nil
}
