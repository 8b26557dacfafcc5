package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexkeeper/fee-liquidator/liquidator/manager"
	"github.com/dexkeeper/fee-liquidator/liquidator/models"
	"github.com/dexkeeper/fee-liquidator/liquidator/router"
)

type handlers struct {
	liquidator *router.Liquidator
	store      *manager.Store
}

func newHandlers(liquidator *router.Liquidator, store *manager.Store) *handlers {
	return &handlers{liquidator: liquidator, store: store}
}

// batchRequest is the wire form of models.BatchRequest with hex addresses.
type batchRequest struct {
	Positions   []string `json:"positions"`
	OutputAsset *string  `json:"output_asset,omitempty"`
	Recipient   string   `json:"recipient"`
}

type pathsRequest struct {
	Paths []string `json:"paths"`
}

type slippageRequest struct {
	Slippage uint64 `json:"slippage"`
}

type sweepRequest struct {
	To string `json:"to"`
}

type configResponse struct {
	Owner              string   `json:"owner"`
	IntermediateAssets []string `json:"intermediate_assets"`
	Slippage           uint64   `json:"slippage"`
}

// processBatch handles POST /v1/batch.
//
// Returns:
// - 400 Bad Request: malformed body or invalid address
// - 403 Forbidden: authenticated principal is not the owner
// - 502 Bad Gateway: batch aborted (no route, exchange rejection)
// - 200 OK: batch committed; body is the emitted batch event
func (h *handlers) processBatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no principal")
		return
	}

	var body batchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req, err := convertBatchRequest(&body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.liquidator.ProcessBatch(r.Context(), caller, *req); err != nil {
		writeDomainError(w, err)
		return
	}

	// The liquidator's own observer already received the batch event; echo
	// the same payload back to the caller.
	writeJSON(w, http.StatusOK, models.BatchEvent{
		Positions:   req.Positions,
		OutputAsset: req.OutputAsset,
		Recipient:   req.Recipient,
		CompletedAt: time.Now(),
	})
}

// setIntermediateAssets handles POST /v1/config/intermediates.
func (h *handlers) setIntermediateAssets(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no principal")
		return
	}

	var body pathsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	paths := make([]common.Address, len(body.Paths))
	for i, p := range body.Paths {
		addr, err := parseAddress(fmt.Sprintf("paths[%d]", i), p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		paths[i] = addr
	}

	if err := h.store.SetIntermediateAssets(caller, paths); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PathsEvent{Paths: paths})
}

// setSlippage handles POST /v1/config/slippage.
func (h *handlers) setSlippage(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no principal")
		return
	}

	var body slippageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.store.SetSlippage(caller, body.Slippage); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"slippage": body.Slippage})
}

// sweepNative handles POST /v1/sweep.
func (h *handlers) sweepNative(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no principal")
		return
	}

	var body sweepRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	to, err := parseAddress("to", body.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.liquidator.SweepNative(r.Context(), caller, to); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"swept_to": to.Hex()})
}

// getConfig handles GET /v1/config.
func (h *handlers) getConfig(w http.ResponseWriter, r *http.Request) {
	intermediates := h.store.Intermediates()
	hexes := make([]string, len(intermediates))
	for i, a := range intermediates {
		hexes[i] = a.Hex()
	}
	writeJSON(w, http.StatusOK, configResponse{
		Owner:              h.store.Owner().Hex(),
		IntermediateAssets: hexes,
		Slippage:           h.store.Slippage(),
	})
}

func convertBatchRequest(body *batchRequest) (*models.BatchRequest, error) {
	if len(body.Positions) == 0 {
		return nil, fmt.Errorf("positions must not be empty")
	}
	positions := make([]common.Address, len(body.Positions))
	for i, p := range body.Positions {
		addr, err := parseAddress(fmt.Sprintf("positions[%d]", i), p)
		if err != nil {
			return nil, err
		}
		positions[i] = addr
	}
	recipient, err := parseAddress("recipient", body.Recipient)
	if err != nil {
		return nil, err
	}

	req := &models.BatchRequest{Positions: positions, Recipient: recipient}
	if body.OutputAsset != nil && *body.OutputAsset != "" {
		output, err := parseAddress("output_asset", *body.OutputAsset)
		if err != nil {
			return nil, err
		}
		req.OutputAsset = &output
	}
	return req, nil
}

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s is not a valid address: %q", field, value)
	}
	return common.HexToAddress(value), nil
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, manager.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, manager.ErrSlippageOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		// Route resolution and exchange failures abort the batch; surface
		// the descriptive reason to the caller.
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
