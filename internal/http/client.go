package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

const requestTimeout = time.Second * 30

// OracleClient provides high level methods to work with the relayer webserver api
type OracleClient struct {
	host   *url.URL
	client http.Client
}

// NewOracleClient takes a host as a single argument and returns an OracleClient in case of well formatted host arg
// host format is <scheme>://<host>[:<port>], e.g. http://relayer.host, http://relayer.host:9999
func NewOracleClient(host string) (*OracleClient, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("host parsing error: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("host %q must be of the <scheme>://<host>[:<port>] format", host)
	}

	u.Path = ""
	u.RawQuery = ""
	return &OracleClient{
		host: u,
		client: http.Client{
			Timeout: requestTimeout,
		},
	}, nil
}

func (c OracleClient) GetFailedTxs() ([]relay.Outcome, error) {
	u := *c.host
	u.Path = FailedTxsResource

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build http request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make http request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got unexpected http response status code: %d", res.StatusCode)
	}
	txs := make([]relay.Outcome, 0)

	decoder := json.NewDecoder(res.Body)
	err = decoder.Decode(&txs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return txs, nil
}

func (c OracleClient) RetryTxs(txIDs []string) (RetryResponse, error) {
	var res RetryResponse

	u := *c.host
	u.Path = RetryTxsResource

	body, err := json.Marshal(RetryRequest{TxIDs: txIDs})
	if err != nil {
		return res, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return res, fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return res, fmt.Errorf("failed to make http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return res, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return res, fmt.Errorf("got unexpected http response status code %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("failed to decode response body: %w", err)
	}

	return res, nil
}
