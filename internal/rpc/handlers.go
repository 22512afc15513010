package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/umpyre-code/beancounter/internal/connect"
	"github.com/umpyre-code/beancounter/internal/ledger"
	"github.com/umpyre-code/beancounter/internal/logger"
	"github.com/umpyre-code/beancounter/internal/store"
)

// NewRouter builds the chi router exposing the RPC-over-HTTP surface of
// spec §6. Each RPC is a POST to /v1/<MethodName> carrying a JSON body.
// Nothing in this package negotiates HTTP/2: the protocol is whatever the
// serving http.Server speaks, and cmd/beancounter starts it with plain
// ListenAndServe (HTTP/1.1, no TLS).
func NewRouter(svc *Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "GET"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/v1/Check", handleCheck(svc))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/GetBalance", handle(svc, "GetBalance", svc.GetBalance))
		r.Post("/GetTransactions", handle(svc, "GetTransactions", svc.GetTransactions))
		r.Post("/AddPayment", handle(svc, "AddPayment", svc.AddPayment))
		r.Post("/SettlePayment", handle(svc, "SettlePayment", svc.SettlePayment))
		r.Post("/AddCredits", handle(svc, "AddCredits", svc.AddCredits))
		r.Post("/AddPromo", handle(svc, "AddPromo", svc.AddPromo))
		r.Post("/CompleteConnectOauth", handle(svc, "CompleteConnectOauth", svc.CompleteConnectOauth))
		r.Post("/GetConnectAccount", handle(svc, "GetConnectAccount", svc.GetConnectAccount))
		r.Post("/UpdateConnectAccountPrefs", handleNoResponse(svc, "UpdateConnectAccountPrefs", svc.UpdateConnectAccountPrefs))
		r.Post("/GetStats", handle(svc, "GetStats", svc.GetStats))
		r.Post("/GetConnectPayoutHistory", handle(svc, "GetConnectPayoutHistory", svc.GetConnectPayoutHistory))

		// ConnectPayout and StripeCharge drive outbound calls to the
		// external provider and post real money; rate-limit them
		// per remote IP to bound worst-case external-call concurrency.
		r.With(httprate.LimitByIP(10, time.Minute)).Post("/ConnectPayout", handle(svc, "ConnectPayout", svc.ConnectPayout))
		r.With(httprate.LimitByIP(10, time.Minute)).Post("/StripeCharge", handle(svc, "StripeCharge", svc.StripeCharge))
	})

	return r
}

func handleCheck(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := svc.Check(r.Context())
		if !resp.Serving {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handle wires a JSON-in/JSON-out RPC method behind schema validation and
// the shared error mapping (spec §7).
func handle[Req, Resp any](svc *Service, method string, fn func(ctx context.Context, req Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := validate(method, body); err != nil {
			logger.GetLogger(r.Context()).Debug("rpc validation failed", zap.String("method", method), zap.Error(err))
			writeError(w, http.StatusBadRequest, err)
			return
		}

		var req Req
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		resp, err := fn(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleNoResponse is the same shape as handle but for RPCs that return
// only an error (UpdateConnectAccountPrefs has no response payload beyond
// success, spec §4.6).
func handleNoResponse[Req any](svc *Service, method string, fn func(ctx context.Context, req Req) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := validate(method, body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		var req Req
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		if err := fn(r.Context(), req); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// statusFor maps an internal error to an RPC-level status (spec §7 kind
// 1): business pre-condition failures that the facade already folded into
// a ResultCode never reach here.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrWrongRecipient):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, connect.ErrCSRFMismatch):
		return http.StatusForbidden
	case errors.Is(err, connect.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
