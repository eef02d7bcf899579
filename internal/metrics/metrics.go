package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelMethod = "method"
	labelType   = "type"
	labelState  = "state"
	typeSuccess = "success"
	typeFailed  = "failed"
)

var (
	relayerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_requests",
		Help: "The total number of requests to external services (counter)",
	}, []string{labelType})

	requestTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "request_time",
		Help:    "A histogram of requests duration",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
	}, []string{labelMethod, labelType})

	pipelineTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_time",
		Help:    "A histogram of settlement pipelines duration by terminal state",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{labelState})

	outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_outcomes",
		Help: "The total number of settlement pipelines by terminal state (counter)",
	}, []string{labelState})

	observedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "observed_events",
		Help: "The total number of TransactionQueued events observed (counter)",
	})

	duplicateEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_events",
		Help: "The total number of queue events discarded by the admission gate (counter)",
	})

	submittedTxCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "submitted_txs",
		Help: "The total number of broadcast settlement txs (counter)",
	}, []string{labelType})

	nonceRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nonce_refreshes",
		Help: "The total number of times the signer nonce was reloaded from the chain (counter)",
	})

	currentNonce = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signer_nonce",
		Help: "The next nonce the signer account will use",
	})

	pollHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poll_height",
		Help: "The last block height covered by the poll loop",
	})

	failedTxsQueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "failed_txs",
		Help: "The total number of failed txs in the storage waiting for an operator",
	})

	trackedTxs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracked_txs",
		Help: "The total number of txIds held by the admission gate",
	})

	taskQueueNumElements = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "task_queue_num_elements",
		Help: "The total number of elements in the admission queue",
	})
)

func incFailedRequests() {
	relayerRequests.With(prometheus.Labels{
		labelType: typeFailed,
	}).Inc()
}

func incSuccessRequests() {
	relayerRequests.With(prometheus.Labels{
		labelType: typeSuccess,
	}).Inc()
}

func AddFailedRequest(method string, dur float64) {
	incFailedRequests()
	requestTime.With(prometheus.Labels{
		labelMethod: method,
		labelType:   typeFailed,
	}).Observe(dur)
}

func AddSuccessRequest(method string, dur float64) {
	incSuccessRequests()
	requestTime.With(prometheus.Labels{
		labelMethod: method,
		labelType:   typeSuccess,
	}).Observe(dur)
}

func AddOutcome(state string, dur float64) {
	outcomes.With(prometheus.Labels{
		labelState: state,
	}).Inc()
	pipelineTime.With(prometheus.Labels{
		labelState: state,
	}).Observe(dur)
}

func IncObservedEvents() {
	observedEvents.Inc()
}

func IncDuplicateEvents() {
	duplicateEvents.Inc()
}

func IncSuccessTxSubmit() {
	submittedTxCounter.With(prometheus.Labels{
		labelType: typeSuccess,
	}).Inc()
}

func IncFailedTxSubmit() {
	submittedTxCounter.With(prometheus.Labels{
		labelType: typeFailed,
	}).Inc()
}

func IncNonceRefreshes() {
	nonceRefreshes.Inc()
}

func SetNonce(nonce uint64) {
	currentNonce.Set(float64(nonce))
}

func SetPollHeight(height uint64) {
	pollHeight.Set(float64(height))
}

func SetFailedTxsSizeQueue(size int) {
	failedTxsQueueSize.Set(float64(size))
}

func SetTrackedTxs(size int) {
	trackedTxs.Set(float64(size))
}

func SetTaskQueueNumElements(numElements int) {
	taskQueueNumElements.Set(float64(numElements))
}
