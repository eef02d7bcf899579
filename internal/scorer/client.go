package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

const (
	predictPath     = "/predict"
	maxResponseSize = 1 << 20
)

type Config struct {
	URL       string
	Timeout   time.Duration
	RateLimit float64
	Attempts  uint
	Delay     time.Duration
	MaxDelay  time.Duration
}

// Request is the body of POST /predict.
type Request struct {
	Sender    string   `json:"sender"`
	Recipient string   `json:"recipient"`
	Amount    *big.Int `json:"amount"`
	Reason    string   `json:"reason"`
	Timestamp uint64   `json:"timestamp"`
	Features  Features `json:"features"`
}

// Response is the body the scorer answers with.
type Response struct {
	Approval *bool `json:"approval"`
}

// Client implements relay.DecisionClient over the scorer HTTP API.
type Client struct {
	cfg      Config
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scorer url %s: %w", cfg.URL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("scorer url %q must be absolute", cfg.URL)
	}
	if !strings.HasSuffix(u.Path, predictPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + predictPath
	}

	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Client{
		cfg:      cfg,
		endpoint: u.String(),
		client:   &http.Client{},
		limiter:  limiter,
		logger:   logger,
	}, nil
}

// Classify implements relay.DecisionClient. A record with an unknown reason is rejected with
// relay.ErrMalformedInput before any request is made.
func (c *Client) Classify(ctx context.Context, record relay.TransactionRecord) (relay.Decision, error) {
	reason, err := ParseReason(record.Reason)
	if err != nil {
		return relay.Decision{}, err
	}

	body, err := json.Marshal(Request{
		Sender:    record.Sender.Hex(),
		Recipient: record.Recipient.Hex(),
		Amount:    record.Amount,
		Reason:    reason.String(),
		Timestamp: record.Timestamp,
		Features:  BuildFeatures(record, reason),
	})
	if err != nil {
		return relay.Decision{}, fmt.Errorf("failed to marshal scorer request: %w", err)
	}

	var approved bool
	err = retry.Do(func() error {
		var err error
		approved, err = c.predict(ctx, body)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(c.cfg.Delay),
		retry.MaxDelay(c.cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("scorer request failed",
				zap.String("tx_id", record.TxID.String()),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return relay.Decision{}, err
		}
		return relay.Decision{}, fmt.Errorf("%w: scorer gave no answer after %d attempts: %w",
			relay.ErrExhausted, c.cfg.Attempts, err)
	}

	return relay.Decision{TxID: record.TxID, Approved: approved}, nil
}

func (c *Client) predict(ctx context.Context, body []byte) (bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return false, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return false, fmt.Errorf("scorer responded with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var res Response
	if err := json.Unmarshal(data, &res); err != nil {
		return false, fmt.Errorf("failed to unmarshal scorer response: %w", err)
	}
	if res.Approval == nil {
		return false, fmt.Errorf("scorer response has no approval field: %s", strings.TrimSpace(string(data)))
	}

	return *res.Approval, nil
}
