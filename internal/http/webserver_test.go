package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	nlogger "github.com/neutron-org/neutron-logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oracle-relayer/oracle-relayer/internal/relay"
	"github.com/oracle-relayer/oracle-relayer/internal/storage"
)

type fakeRetrier struct {
	mu      sync.Mutex
	retried []string
	refuse  map[string]error
}

func (f *fakeRetrier) Retry(_ context.Context, txID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.refuse[txID]; ok {
		return err
	}
	f.retried = append(f.retried, txID)
	return nil
}

func newTestServer(t *testing.T, store relay.Storage, retrier Retrier) (*httptest.Server, *OracleClient) {
	logRegistry, err := nlogger.NewRegistry(ServerContext, MonitoringLoggerContext)
	require.NoError(t, err)

	server := httptest.NewServer(Router(logRegistry, store, retrier))
	t.Cleanup(server.Close)

	client, err := NewOracleClient(server.URL)
	require.NoError(t, err)

	return server, client
}

func TestGetFailedTxs(t *testing.T) {
	store := storage.NewMemoryStorage()
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.SetOutcome(relay.Outcome{TxID: "1", State: relay.Failed, Reason: "scorer down", BlockHeight: 10, UpdatedAt: now}))
	require.NoError(t, store.SetOutcome(relay.Outcome{TxID: "2", State: relay.Confirmed, UpdatedAt: now}))

	_, client := newTestServer(t, store, &fakeRetrier{})

	txs, err := client.GetFailedTxs()
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "1", txs[0].TxID)
	assert.Equal(t, relay.Failed, txs[0].State)
	assert.Equal(t, "scorer down", txs[0].Reason)
	assert.True(t, now.Equal(txs[0].UpdatedAt))
}

func TestGetFailedTxsEmpty(t *testing.T) {
	server, client := newTestServer(t, storage.NewMemoryStorage(), &fakeRetrier{})

	txs, err := client.GetFailedTxs()
	require.NoError(t, err)
	assert.Empty(t, txs)

	res, err := http.Get(server.URL + FailedTxsResource)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(bytes.TrimSpace(body)))
}

func TestRetryTxs(t *testing.T) {
	retrier := &fakeRetrier{refuse: map[string]error{
		"2": fmt.Errorf("tx 2 is not in the failed queue: %w", relay.ErrNotFound),
	}}
	_, client := newTestServer(t, storage.NewMemoryStorage(), retrier)

	res, err := client.RetryTxs([]string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, res.Retried)
	assert.Contains(t, res.Errors["2"], "not in the failed queue")
	assert.Equal(t, []string{"1"}, retrier.retried)

	res, err = client.RetryTxs([]string{"2"})
	require.NoError(t, err)
	assert.Empty(t, res.Retried)
	assert.Len(t, res.Errors, 1)
}

func TestRetryTxsBadRequest(t *testing.T) {
	server, client := newTestServer(t, storage.NewMemoryStorage(), &fakeRetrier{})

	_, err := client.RetryTxs(nil)
	assert.Error(t, err)

	res, err := http.Post(server.URL+RetryTxsResource, "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, err = http.Get(server.URL + RetryTxsResource)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestMetricsReportFailedTxs(t *testing.T) {
	store := storage.NewMemoryStorage()
	require.NoError(t, store.SetOutcome(relay.Outcome{TxID: "1", State: relay.Failed, UpdatedAt: time.Now()}))
	server, _ := newTestServer(t, store, &fakeRetrier{})

	res, err := http.Get(server.URL + PrometheusMetrics)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "failed_txs 1")
}

func TestNewOracleClientRejectsBadHost(t *testing.T) {
	_, err := NewOracleClient("localhost")
	assert.Error(t, err)
}
