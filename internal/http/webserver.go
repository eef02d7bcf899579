package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	nlogger "github.com/neutron-org/neutron-logger"
	"go.uber.org/zap"

	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

const (
	ServerContext       = "http"
	FailedTxsResource   = "/failed-txs"
	RetryTxsResource    = "/failed-txs/retry"
	PrometheusMetrics   = "/metrics"
	maxRetryRequestSize = 1 << 16
)

// Retrier re-enqueues failed transactions.
type Retrier interface {
	Retry(ctx context.Context, txID string) error
}

// RetryRequest is the body of POST /failed-txs/retry.
type RetryRequest struct {
	TxIDs []string `json:"tx_ids"`
}

// RetryResponse lists the re-enqueued txIds and the reason each of the others was refused.
type RetryResponse struct {
	Retried []string          `json:"retried"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func Run(ctx context.Context, logRegistry *nlogger.Registry, storage relay.Storage, retrier Retrier, listenAddr string) error {
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           Router(logRegistry, storage, retrier),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger := logRegistry.Get(ServerContext)
	errch := make(chan error, 1)

	go func() {
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error("failed to serve http", zap.Error(err))
				errch <- err
			}
		}
	}()
	logger.Info("api http server started", zap.String("listen_addr", listenAddr))

	select {
	case err := <-errch:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down the api http")
	webserverCtx, cancelWebserverCtx := context.WithTimeout(context.Background(), time.Second*5)
	defer cancelWebserverCtx()
	if err := server.Shutdown(webserverCtx); err != nil {
		logger.Error("failed to shutdown api http gracefully", zap.Error(err))
		return nil
	}

	logger.Info("api http shut down successfully")
	return nil
}

func Router(logRegistry *nlogger.Registry, storage relay.Storage, retrier Retrier) *mux.Router {
	logger := logRegistry.Get(ServerContext)
	promHandler := NewPromWrapper(logRegistry, storage)
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc(FailedTxsResource, failedTxs(logger, storage)).Methods(http.MethodGet)
	router.HandleFunc(RetryTxsResource, retryTxs(logger, retrier)).Methods(http.MethodPost)
	router.Handle(PrometheusMetrics, promHandler)
	return router
}

func failedTxs(logger *zap.Logger, storage relay.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := storage.GetAllFailedTxs()
		if err != nil {
			logger.Error("failed to execute GetAllFailedTxs", zap.Error(err))
			http.Error(w, "Error processing request", http.StatusInternalServerError)
			return
		}
		if res == nil {
			res = []relay.Outcome{}
		}

		writeJSON(logger, w, http.StatusOK, res)
	}
}

func retryTxs(logger *zap.Logger, retrier Retrier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RetryRequest
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRetryRequestSize))
		if err := decoder.Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.TxIDs) == 0 {
			http.Error(w, "tx_ids must not be empty", http.StatusBadRequest)
			return
		}

		res := RetryResponse{Retried: []string{}}
		for _, txID := range req.TxIDs {
			if err := retrier.Retry(r.Context(), txID); err != nil {
				logger.Warn("failed to retry tx", zap.String("tx_id", txID), zap.Error(err))
				if res.Errors == nil {
					res.Errors = make(map[string]string)
				}
				res.Errors[txID] = err.Error()
				continue
			}
			res.Retried = append(res.Retried, txID)
		}

		status := http.StatusOK
		if len(res.Retried) == 0 {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(logger, w, status, res)
	}
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
