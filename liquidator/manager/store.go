// Package manager holds the liquidator's persistent configuration: the
// ordered intermediate-asset list used for single-hop routing, the slippage
// scale applied to every quoted swap, and the owner allowed to change either.
package manager

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var managerLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	managerLog = zerolog.New(out).With().Timestamp().Str("component", "manager").Logger()
}

// SlippageScale is the denominator of the slippage factor: a swap's minimum
// output is expected * slippage / SlippageScale, truncating.
const SlippageScale = 1000

var (
	// ErrUnauthorized rejects gated operations invoked by a non-owner.
	ErrUnauthorized = errors.New("caller is not the owner")

	// ErrSlippageOutOfRange rejects slippage values above SlippageScale.
	// Values above the scale would inflate every minimum output beyond the
	// quoted amount and guarantee swap failure.
	ErrSlippageOutOfRange = errors.New("slippage out of range")
)

// PathsChangedFunc observes replacements of the intermediate-asset list.
type PathsChangedFunc func(paths []common.Address)

// SlippageChangedFunc observes slippage updates.
type SlippageChangedFunc func(slippage uint64)

// Store is the configuration store. Writes are owner-gated and serialized;
// reads return defensive copies so batch execution never observes a list
// mutated mid-resolution.
type Store struct {
	mu            sync.RWMutex
	owner         common.Address
	intermediates []common.Address
	slippage      uint64

	onPathsChanged    PathsChangedFunc
	onSlippageChanged SlippageChangedFunc
}

// NewStore creates a store owned by owner. The initial slippage must be
// within [0, SlippageScale].
func NewStore(owner common.Address, intermediates []common.Address, slippage uint64) (*Store, error) {
	if slippage > SlippageScale {
		return nil, fmt.Errorf("%w: %d > %d", ErrSlippageOutOfRange, slippage, SlippageScale)
	}
	s := &Store{
		owner:         owner,
		intermediates: append([]common.Address(nil), intermediates...),
		slippage:      slippage,
	}
	managerLog.Info().
		Str("owner", owner.Hex()).
		Int("intermediates", len(intermediates)).
		Uint64("slippage", slippage).
		Msg("Configuration store created")
	return s, nil
}

// OnPathsChanged registers the intermediate-list change observer.
func (s *Store) OnPathsChanged(fn PathsChangedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPathsChanged = fn
}

// OnSlippageChanged registers the slippage change observer.
func (s *Store) OnSlippageChanged(fn SlippageChangedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSlippageChanged = fn
}

// Authorize returns ErrUnauthorized unless caller is the owner.
func (s *Store) Authorize(caller common.Address) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if caller != s.owner {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
	}
	return nil
}

// SetIntermediateAssets replaces the whole intermediate-asset list.
// List contents are not validated: duplicates or the zero address can only
// ever fail to match during resolution, never wrongly match.
func (s *Store) SetIntermediateAssets(caller common.Address, paths []common.Address) error {
	if err := s.Authorize(caller); err != nil {
		return err
	}

	replacement := append([]common.Address(nil), paths...)

	s.mu.Lock()
	s.intermediates = replacement
	notify := s.onPathsChanged
	s.mu.Unlock()

	managerLog.Info().
		Int("count", len(replacement)).
		Msg("Intermediate assets replaced")
	if notify != nil {
		notify(append([]common.Address(nil), replacement...))
	}
	return nil
}

// SetSlippage replaces the slippage scale, bounded to [0, SlippageScale].
func (s *Store) SetSlippage(caller common.Address, slippage uint64) error {
	if err := s.Authorize(caller); err != nil {
		return err
	}
	if slippage > SlippageScale {
		return fmt.Errorf("%w: %d > %d", ErrSlippageOutOfRange, slippage, SlippageScale)
	}

	s.mu.Lock()
	s.slippage = slippage
	notify := s.onSlippageChanged
	s.mu.Unlock()

	managerLog.Info().Uint64("slippage", slippage).Msg("Slippage replaced")
	if notify != nil {
		notify(slippage)
	}
	return nil
}

// Intermediates returns a copy of the configured intermediate-asset list in
// insertion order.
func (s *Store) Intermediates() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]common.Address(nil), s.intermediates...)
}

// Slippage returns the current slippage scale.
func (s *Store) Slippage() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slippage
}

// Owner returns the administrator address.
func (s *Store) Owner() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}
