// Package router implements the liquidation pipeline: path resolution over
// the exchange's pool registry, bounded swap execution, LP unwinding, and
// the batch orchestrator tying them together.
package router

import (
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var routerLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	routerLog = zerolog.New(out).With().Timestamp().Str("component", "router").Logger()
}

// SetLogger allows setting a custom logger for the package.
func SetLogger(l zerolog.Logger) {
	routerLog = l
}

// deadlineWindow bounds every exchange interaction: calls not executed
// within this window of their submission are expected to be rejected.
const deadlineWindow = 600 * time.Second

// RouteKind tags the two shapes a resolved route can take.
type RouteKind int

const (
	// RouteDirect swaps through the single (source, dest) pool.
	RouteDirect RouteKind = iota + 1
	// RouteSingleHop swaps source -> intermediate -> dest.
	RouteSingleHop
)

func (k RouteKind) String() string {
	switch k {
	case RouteDirect:
		return "direct"
	case RouteSingleHop:
		return "single_hop"
	default:
		return "unknown"
	}
}

// Route is a resolved conversion path. For RouteSingleHop the Intermediate
// field names the configured asset the swap hops through; for RouteDirect it
// is unset.
type Route struct {
	Kind         RouteKind
	Source       common.Address
	Intermediate common.Address
	Dest         common.Address
}

// Path returns the ordered asset sequence the exchange router expects.
func (r Route) Path() []common.Address {
	if r.Kind == RouteSingleHop {
		return []common.Address{r.Source, r.Intermediate, r.Dest}
	}
	return []common.Address{r.Source, r.Dest}
}

// Hops is the number of exchange steps the route takes.
func (r Route) Hops() int {
	if r.Kind == RouteSingleHop {
		return 2
	}
	return 1
}
