// Package restapi provides the REST handlers of the control surface.
package restapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/anyswap/CrossChain-HTLC/internal/swapapi"
	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/types"
	"github.com/anyswap/CrossChain-HTLC/validator"
)

const maxBodySize = 1 << 20

// ErrorResponse error body
type ErrorResponse struct {
	Error  string                 `json:"error"`
	Errors []validator.FieldError `json:"errors,omitempty"`
}

// SecretArgs body of provide secret
type SecretArgs struct {
	Secret string `json:"secret"`
}

// ResolverReadyArgs body of resolver ready
type ResolverReadyArgs struct {
	ResolverAddress string `json:"resolverAddress"`
}

// Handler rest handlers
type Handler struct {
	api *swapapi.API
}

// NewHandler new rest handler
func NewHandler(api *swapapi.API) *Handler {
	return &Handler{api: api}
}

func writeResponse(w http.ResponseWriter, status int, resp interface{}) {
	jsonData, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(jsonData)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := &ErrorResponse{Error: err.Error()}
	switch {
	case swapapi.IsNotFound(err):
		// unknown order is a bad request on operations, not found on queries
		if r.Method == http.MethodGet {
			status = http.StatusNotFound
		} else {
			status = http.StatusBadRequest
		}
	case swapapi.IsRejected(err):
		status = http.StatusBadRequest
		if verr, ok := swapapi.IsValidationError(err); ok {
			resp.Error = "validation failed"
			resp.Errors = verr.Errors
		}
	default:
		log.Warn("[restapi] request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeResponse(w, status, resp)
}

func decodeBody(r *http.Request, args interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", swapapi.ErrWrongParams, err)
	}
	if err = json.Unmarshal(body, args); err != nil {
		return fmt.Errorf("%w: decode body: %v", swapapi.ErrWrongParams, err)
	}
	return nil
}

// VersionInfoHandler handler
func VersionInfoHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, http.StatusOK, swapapi.VersionInfo())
}

// CreateSwapHandler POST /swaps
func (h *Handler) CreateSwapHandler(w http.ResponseWriter, r *http.Request) {
	var args types.SwapParams
	if err := decodeBody(r, &args); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.api.CreateSwap(&args)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, res)
}

// ProvideSecretHandler POST /swaps/{orderId}/secret
func (h *Handler) ProvideSecretHandler(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]
	var args SecretArgs
	if err := decodeBody(r, &args); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.api.ProvideSecret(orderID, args.Secret); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.api.GetSwap(orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, res)
}

// ResolverReadyHandler POST /swaps/{orderId}/resolver-ready
func (h *Handler) ResolverReadyHandler(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]
	var args ResolverReadyArgs
	if err := decodeBody(r, &args); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.api.ResolverReady(orderID, args.ResolverAddress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, res)
}

// GetSwapHandler GET /swaps/{orderId}
func (h *Handler) GetSwapHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.api.GetSwap(mux.Vars(r)["orderId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, res)
}

// GetSwapsHandler GET /swaps?status=
func (h *Handler) GetSwapsHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.api.GetSwaps(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, res)
}

// ForceRevealHandler POST /swaps/{orderId}/force-reveal
func (h *Handler) ForceRevealHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.api.ForceReveal(mux.Vars(r)["orderId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, res)
}

// StatusHandler GET /status
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.api.GetStatus()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, res)
}

// DeadlinesHandler GET /deadlines?window=
func (h *Handler) DeadlinesHandler(w http.ResponseWriter, r *http.Request) {
	var window int64
	if val := r.URL.Query().Get("window"); val != "" {
		var err error
		window, err = strconv.ParseInt(val, 10, 64)
		if err != nil || window <= 0 {
			writeError(w, r, fmt.Errorf("%w: wrong window %q", swapapi.ErrWrongParams, val))
			return
		}
	}
	res, err := h.api.GetDeadlines(window)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, res)
}

// DisclosuresHandler GET /disclosures?since=&limit=
func (h *Handler) DisclosuresHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var (
		since uint64
		limit int
		err   error
	)
	if val := query.Get("since"); val != "" {
		if since, err = strconv.ParseUint(val, 10, 64); err != nil {
			writeError(w, r, fmt.Errorf("%w: wrong since %q", swapapi.ErrWrongParams, val))
			return
		}
	}
	if val := query.Get("limit"); val != "" {
		if limit, err = strconv.Atoi(val); err != nil || limit <= 0 {
			writeError(w, r, fmt.Errorf("%w: wrong limit %q", swapapi.ErrWrongParams, val))
			return
		}
	}
	res, err := h.api.GetDisclosures(since, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, res)
}
