// Package models defines the request and event types shared between the
// liquidation pipeline and the RPC surface.
package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BatchRequest drives one liquidation batch: the LP positions to unwind, an
// optional single output asset to convert both legs into, and the receiver
// of the proceeds. A nil OutputAsset means split-and-forward: both underlying
// assets of every position go straight to the recipient with no swapping.
type BatchRequest struct {
	Positions   []common.Address `json:"positions"`
	OutputAsset *common.Address  `json:"output_asset,omitempty"`
	Recipient   common.Address   `json:"recipient"`
}

// BatchEvent is the single completion notification emitted per successful
// batch, carrying the full input list and destination.
type BatchEvent struct {
	Positions   []common.Address `json:"positions"`
	OutputAsset *common.Address  `json:"output_asset,omitempty"`
	Recipient   common.Address   `json:"recipient"`
	CompletedAt time.Time        `json:"completed_at"`
}

// PathsEvent reports a replacement of the intermediate-asset list.
type PathsEvent struct {
	Paths     []common.Address `json:"paths"`
	ChangedAt time.Time        `json:"changed_at"`
}
