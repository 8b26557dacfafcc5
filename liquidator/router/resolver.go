package router

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexkeeper/fee-liquidator/dex"
	"github.com/dexkeeper/fee-liquidator/liquidator/manager"
)

// Resolver decides which path of existing pools a conversion uses.
// Priority order: 1) direct pool, 2) first configured intermediate with a
// pool on both legs. No cost comparison across candidates: first match in
// configured order wins.
type Resolver struct {
	registry dex.Registry
	store    *manager.Store
}

// NewResolver creates a resolver over the given pool registry and
// configuration store.
func NewResolver(registry dex.Registry, store *manager.Store) *Resolver {
	return &Resolver{registry: registry, store: store}
}

// Resolve returns a conversion route from source to dest, or ErrNoRoute.
// Callers must handle source == dest themselves (a direct transfer, not a
// swap); resolving that pair is a programming error.
func (r *Resolver) Resolve(ctx context.Context, source, dest common.Address) (Route, error) {
	if source == dest {
		return Route{}, fmt.Errorf("%w: %s", ErrSameAsset, source.Hex())
	}

	_, exists, err := r.registry.GetPool(ctx, source, dest)
	if err != nil {
		return Route{}, fmt.Errorf("pool lookup failed: %w", err)
	}
	if exists {
		routerLog.Debug().
			Str("source", source.Hex()).
			Str("dest", dest.Hex()).
			Msg("Found direct route")
		return Route{Kind: RouteDirect, Source: source, Dest: dest}, nil
	}

	for _, mid := range r.store.Intermediates() {
		// An intermediate equal to either endpoint would produce a
		// degenerate path; correct exclusion, not validation.
		if mid == source || mid == dest {
			continue
		}
		_, inExists, err := r.registry.GetPool(ctx, source, mid)
		if err != nil {
			return Route{}, fmt.Errorf("pool lookup failed: %w", err)
		}
		if !inExists {
			continue
		}
		_, outExists, err := r.registry.GetPool(ctx, mid, dest)
		if err != nil {
			return Route{}, fmt.Errorf("pool lookup failed: %w", err)
		}
		if !outExists {
			continue
		}
		routerLog.Debug().
			Str("source", source.Hex()).
			Str("intermediate", mid.Hex()).
			Str("dest", dest.Hex()).
			Msg("Found single-hop route")
		return Route{Kind: RouteSingleHop, Source: source, Intermediate: mid, Dest: dest}, nil
	}

	routerLog.Warn().
		Str("source", source.Hex()).
		Str("dest", dest.Hex()).
		Msg("No route found")
	return Route{}, fmt.Errorf("%w: %s -> %s", ErrNoRoute, source.Hex(), dest.Hex())
}
