// Package server serves the control surface over http.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2"
	rpcjson "github.com/gorilla/rpc/v2/json2"

	"github.com/anyswap/CrossChain-HTLC/internal/swapapi"
	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/rpc/restapi"
	"github.com/anyswap/CrossChain-HTLC/rpc/rpcapi"
)

const shutdownTimeout = 10 * time.Second

// StartAPIServer start api server, it is shut down when ctx is done
func StartAPIServer(ctx context.Context, api *swapapi.API, config *params.APIServerConfig) (*http.Server, error) {
	tokens := NewTokenSet(config.BearerTokens)
	if config.TokensFile != "" {
		if err := tokens.WatchFile(ctx, config.TokensFile); err != nil {
			return nil, fmt.Errorf("load tokens file: %w", err)
		}
	}
	if tokens.Len() == 0 {
		log.Warn("no bearer token configured, authenticated api is unreachable")
	}

	svr := &http.Server{
		Addr:         fmt.Sprintf(":%v", config.Port),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		Handler:      NewHandler(api, tokens, config),
	}

	log.Info("api service listen and serving", "port", config.Port, "allowedOrigins", config.AllowedOrigins, "maxRequestsLimit", config.MaxRequestsLimit)
	go func() {
		if err := svr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ListenAndServe error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svr.Shutdown(shutdownCtx); err != nil {
			log.Warn("api server shutdown failed", "err", err)
		}
	}()
	return svr, nil
}

// NewHandler router wrapped with cors and rate limiting
func NewHandler(api *swapapi.API, tokens *TokenSet, config *params.APIServerConfig) http.Handler {
	corsOptions := []handlers.CORSOption{
		handlers.AllowedMethods([]string{"GET", "POST"}),
	}
	if len(config.AllowedOrigins) != 0 {
		corsOptions = append(corsOptions,
			handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"}),
			handlers.AllowedOrigins(config.AllowedOrigins),
		)
	}
	var handler http.Handler = handlers.CORS(corsOptions...)(initRouter(api, tokens))

	if config.MaxRequestsLimit > 0 {
		lmt := tollbooth.NewLimiter(float64(config.MaxRequestsLimit), nil)
		lmt.SetMessageContentType("application/json")
		lmt.SetMessage(`{"error":"too many requests"}`)
		handler = tollbooth.LimitHandler(lmt, handler)
	}
	return handler
}

func initRouter(api *swapapi.API, tokens *TokenSet) *mux.Router {
	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(warnHandler)
	r.HandleFunc("/versioninfo", restapi.VersionInfoHandler).Methods("GET")

	rpcserver := rpc.NewServer()
	rpcserver.RegisterCodec(rpcjson.NewCodec(), "application/json")
	_ = rpcserver.RegisterService(rpcapi.NewRPCAPI(api), "swap")

	h := restapi.NewHandler(api)
	// secrets in the feed are already public
	r.HandleFunc("/disclosures", h.DisclosuresHandler).Methods("GET")

	authed := r.NewRoute().Subrouter()
	authed.MethodNotAllowedHandler = http.HandlerFunc(warnHandler)
	authed.Use(BearerAuth(tokens))

	authed.Handle("/rpc", rpcserver)
	authed.HandleFunc("/status", h.StatusHandler).Methods("GET")
	authed.HandleFunc("/deadlines", h.DeadlinesHandler).Methods("GET")
	authed.HandleFunc("/swaps", h.CreateSwapHandler).Methods("POST")
	authed.HandleFunc("/swaps", h.GetSwapsHandler).Methods("GET")
	authed.HandleFunc("/swaps/{orderId}", h.GetSwapHandler).Methods("GET")
	authed.HandleFunc("/swaps/{orderId}/secret", h.ProvideSecretHandler).Methods("POST")
	authed.HandleFunc("/swaps/{orderId}/resolver-ready", h.ResolverReadyHandler).Methods("POST")
	authed.HandleFunc("/swaps/{orderId}/force-reveal", h.ForceRevealHandler).Methods("POST")

	return r
}

func warnHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
	fmt.Fprintf(w, "Forbid '%v' on '%v'\n", r.Method, r.RequestURI)
}
