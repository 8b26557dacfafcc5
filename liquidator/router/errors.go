package router

import "errors"

// ErrNoRoute means neither a direct pool nor a single-hop path through any
// configured intermediate exists between two assets. Fatal for the batch.
var ErrNoRoute = errors.New("no route found")

// ErrSameAsset flags a resolution request where source equals destination.
// Callers short-circuit that case to a direct transfer before resolving.
var ErrSameAsset = errors.New("source and destination are the same asset")
