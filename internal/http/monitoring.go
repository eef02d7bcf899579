package http

import (
	"net/http"

	nlogger "github.com/neutron-org/neutron-logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oracle-relayer/oracle-relayer/internal/metrics"
	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

const MonitoringLoggerContext = "monitoring"

// PromWrapper refreshes the storage-backed gauges on every scrape.
type PromWrapper struct {
	promHandler http.Handler
	storage     relay.Storage
	logger      *zap.Logger
}

func NewPromWrapper(logRegistry *nlogger.Registry, storage relay.Storage) PromWrapper {
	return PromWrapper{
		promHandler: promhttp.Handler(),
		storage:     storage,
		logger:      logRegistry.Get(MonitoringLoggerContext),
	}
}

func (p PromWrapper) FillFailedTxsMetric() {
	txs, err := p.storage.GetAllFailedTxs()
	if err != nil {
		p.logger.Error("failed to get failed txs from storage", zap.Error(err))
		return
	}
	metrics.SetFailedTxsSizeQueue(len(txs))
}

func (p PromWrapper) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	p.FillFailedTxsMetric()
	p.promHandler.ServeHTTP(res, req)
}
