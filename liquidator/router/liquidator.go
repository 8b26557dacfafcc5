package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexkeeper/fee-liquidator/dex"
	"github.com/dexkeeper/fee-liquidator/liquidator/manager"
	"github.com/dexkeeper/fee-liquidator/liquidator/models"
)

// BatchCompletedFunc observes the single completion notification emitted per
// successful batch.
type BatchCompletedFunc func(models.BatchEvent)

// Liquidator is the externally callable entry point of the pipeline. Batches
// are owner-gated and run one at a time under an exclusive lock; every batch
// executes inside the exchange's atomic boundary, so a failure on any
// position leaves no partial effects behind.
type Liquidator struct {
	mu       sync.Mutex
	store    *manager.Store
	exchange dex.Exchange
	metrics  *Metrics
	now      func() time.Time

	onBatchCompleted BatchCompletedFunc
}

// Option configures a Liquidator.
type Option func(*Liquidator)

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *Metrics) Option {
	return func(l *Liquidator) { l.metrics = m }
}

// WithClock injects the clock used for deadlines and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Liquidator) { l.now = now }
}

// WithBatchCompleted registers the batch completion observer.
func WithBatchCompleted(fn BatchCompletedFunc) Option {
	return func(l *Liquidator) { l.onBatchCompleted = fn }
}

// NewLiquidator creates the orchestrator over a configuration store and an
// exchange.
func NewLiquidator(store *manager.Store, exchange dex.Exchange, opts ...Option) *Liquidator {
	l := &Liquidator{
		store:    store,
		exchange: exchange,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ProcessBatch unwinds every position in caller-supplied order, converting
// proceeds to the requested output asset (or splitting them directly to the
// recipient when none is requested). The batch commits or fails as a whole:
// the first failure aborts it inside the exchange's atomic boundary and no
// completion event is emitted.
func (l *Liquidator) ProcessBatch(ctx context.Context, caller common.Address, req models.BatchRequest) error {
	if err := l.store.Authorize(caller); err != nil {
		l.metrics.unauthorized()
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	started := l.now()
	routerLog.Info().
		Int("positions", len(req.Positions)).
		Str("recipient", req.Recipient.Hex()).
		Bool("convert", req.OutputAsset != nil).
		Msg("Processing batch")

	err := l.exchange.Atomic(ctx, func(x dex.Exchange) error {
		// The pipeline is rebuilt on the atomic handle so every call of this
		// batch stays inside the same transactional unit.
		resolver := NewResolver(x, l.store)
		executor := NewExecutor(x, l.store, resolver, l.now)
		unwinder := NewUnwinder(x, executor, l.now)

		for _, position := range req.Positions {
			if err := unwinder.Unwind(ctx, position, req.OutputAsset, req.Recipient); err != nil {
				return fmt.Errorf("position %s: %w", position.Hex(), err)
			}
		}
		return nil
	})

	elapsed := l.now().Sub(started).Seconds()
	if err != nil {
		l.metrics.batchDone("aborted", len(req.Positions), elapsed)
		routerLog.Error().Err(err).Msg("Batch aborted")
		return err
	}

	l.metrics.batchDone("committed", len(req.Positions), elapsed)
	event := models.BatchEvent{
		Positions:   req.Positions,
		OutputAsset: req.OutputAsset,
		Recipient:   req.Recipient,
		CompletedAt: l.now(),
	}
	routerLog.Info().
		Int("positions", len(event.Positions)).
		Str("recipient", event.Recipient.Hex()).
		Msg("Liquidity tokens swapped")
	if l.onBatchCompleted != nil {
		l.onBatchCompleted(event)
	}
	return nil
}

// SweepNative drains the controller's entire native-currency balance to the
// given address. Operational housekeeping, not part of the swap pipeline.
func (l *Liquidator) SweepNative(ctx context.Context, caller, to common.Address) error {
	if err := l.store.Authorize(caller); err != nil {
		l.metrics.unauthorized()
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, err := l.exchange.NativeBalance(ctx)
	if err != nil {
		return fmt.Errorf("failed to read native balance: %w", err)
	}
	if balance.Sign() == 0 {
		routerLog.Info().Msg("No native balance to sweep")
		return nil
	}
	if err := l.exchange.SendNative(ctx, to, balance); err != nil {
		return fmt.Errorf("native sweep to %s failed: %w", to.Hex(), err)
	}

	l.metrics.nativeSwept()
	routerLog.Info().
		Str("to", to.Hex()).
		Str("amount", balance.String()).
		Msg("Native balance swept")
	return nil
}
