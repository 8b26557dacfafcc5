package router

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexkeeper/fee-liquidator/dex"
)

// Unwinder converts one LP position into its two constituent asset balances,
// either straight to the recipient (no output asset requested) or to the
// controller for onward conversion through the resolver and executor.
type Unwinder struct {
	exchange dex.Exchange
	executor *Executor
	now      func() time.Time
}

// NewUnwinder creates an unwinder over the given exchange and executor.
func NewUnwinder(exchange dex.Exchange, executor *Executor, now func() time.Time) *Unwinder {
	if now == nil {
		now = time.Now
	}
	return &Unwinder{exchange: exchange, executor: executor, now: now}
}

// Unwind removes the controller's entire balance of the LP position and
// forwards the proceeds.
//
// With output == nil both underlying assets are paid out directly to
// recipient by the liquidity removal itself; the resolver and executor are
// never touched. Otherwise the removal pays the controller, and each of the
// two assets is independently converted to the output asset and forwarded.
//
// The removal runs with zero minimum amounts for both legs: the two assets
// received are not being valued against each other at this step, slippage
// protection applies at the swap step instead. Any failure propagates and
// aborts the enclosing batch.
func (u *Unwinder) Unwind(ctx context.Context, position common.Address, output *common.Address, recipient common.Address) error {
	asset0, asset1, err := u.exchange.UnderlyingAssets(ctx, position)
	if err != nil {
		return fmt.Errorf("failed to read underlying assets of %s: %w", position.Hex(), err)
	}

	liquidity, err := u.exchange.BalanceOf(ctx, position, u.exchange.Self())
	if err != nil {
		return fmt.Errorf("failed to read LP balance of %s: %w", position.Hex(), err)
	}

	if err := u.exchange.Approve(ctx, position, u.exchange.RouterAddress(), liquidity); err != nil {
		return fmt.Errorf("LP approval for %s failed: %w", position.Hex(), err)
	}

	to := recipient
	if output != nil {
		to = u.exchange.Self()
	}
	deadline := big.NewInt(u.now().Add(deadlineWindow).Unix())

	routerLog.Info().
		Str("position", position.Hex()).
		Str("asset0", asset0.Hex()).
		Str("asset1", asset1.Hex()).
		Str("liquidity", liquidity.String()).
		Bool("convert", output != nil).
		Msg("Unwinding position")

	zero := new(big.Int)
	if err := u.exchange.RemoveLiquidity(ctx, asset0, asset1, liquidity, zero, zero, to, deadline); err != nil {
		return fmt.Errorf("liquidity removal for %s failed: %w", position.Hex(), err)
	}

	if output == nil {
		return nil
	}

	if err := u.executor.Forward(ctx, asset0, *output, recipient); err != nil {
		return err
	}
	return u.executor.Forward(ctx, asset1, *output, recipient)
}
