package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	nlogger "github.com/neutron-org/neutron-logger"
	"go.uber.org/zap"

	"github.com/oracle-relayer/oracle-relayer/internal/config"
	"github.com/oracle-relayer/oracle-relayer/internal/relay"
	"github.com/oracle-relayer/oracle-relayer/internal/storage"
	"github.com/oracle-relayer/oracle-relayer/internal/subscriber"
)

var (
	Version = ""
	Commit  = ""
)

const (
	AppContext         = "app"
	SubscriberContext  = "subscriber"
	RelayerContext     = "relayer"
	ChainReaderContext = "chain_reader"
	ScorerContext      = "scorer"
	TxSenderContext    = "tx_sender"
	StorageContext     = "storage"
)

// retries configuration for checking the chain params on startup
var (
	rtyAtt = retry.Attempts(uint(5))
	rtyDel = retry.Delay(time.Second * 10)
	rtyErr = retry.LastErrorOnly(true)
)

func NewDefaultSubscriber(
	cfg config.OracleRelayerConfig,
	logRegistry *nlogger.Registry,
	deps *DependencyContainer,
	storage relay.Storage,
	watermark *relay.Watermark,
) (relay.Subscriber, error) {
	s, err := subscriber.NewSubscriber(
		subscriber.Config{
			PollInterval: cfg.Chain.PollInterval,
			StartBlock:   cfg.Chain.StartBlock,
		},
		deps.GetChainReader(),
		storage,
		watermark,
		logRegistry.Get(SubscriberContext),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create a NewSubscriber: %w", err)
	}

	return s, nil
}

// NewDefaultRelayer returns a relayer built with cfg.
func NewDefaultRelayer(
	cfg config.OracleRelayerConfig,
	logRegistry *nlogger.Registry,
	storage relay.Storage,
	deps *DependencyContainer,
	watermark *relay.Watermark,
) *relay.Relayer {
	return relay.NewRelayer(
		cfg.Relayer,
		deps.GetChainReader(),
		deps.GetScorer(),
		deps.GetTxSender(),
		storage,
		watermark,
		logRegistry.Get(RelayerContext),
	)
}

// NewDefaultStorage opens the LevelDB storage at cfg.StoragePath. An empty path gives an
// in-memory storage which loses the checkpoint and outcomes on restart.
func NewDefaultStorage(cfg config.OracleRelayerConfig, logger *zap.Logger) (relay.Storage, error) {
	if cfg.StoragePath == "" {
		logger.Warn("storage path is empty, outcomes and checkpoint will not survive a restart")
		return storage.NewMemoryStorage(), nil
	}

	leveldbStorage, err := storage.NewLevelDBStorage(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create NewLevelDBStorage: %w", err)
	}

	return leveldbStorage, nil
}

// checkChainParams makes sure the node serves the configured chain and the oracle contract is deployed.
func checkChainParams(ctx context.Context, client *ethclient.Client, cfg config.ChainConfig, logger *zap.Logger) error {
	var (
		chainID  *big.Int
		contract = common.HexToAddress(cfg.ContractAddress)
	)

	if err := retry.Do(func() error {
		var err error

		chainID, err = client.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("failed to get chain id: %w", err)
		}

		code, err := client.CodeAt(ctx, contract, nil)
		if err != nil {
			return fmt.Errorf("failed to get contract code: %w", err)
		}
		if len(code) == 0 {
			return retry.Unrecoverable(fmt.Errorf("no contract deployed at %s", contract.Hex()))
		}

		return nil
	}, retry.Context(ctx), rtyAtt, rtyDel, rtyErr, retry.OnRetry(func(n uint, err error) {
		logger.Info("failed to check chain params", zap.Error(err))
	})); err != nil {
		return err
	}

	if chainID.Int64() != cfg.ChainID {
		return fmt.Errorf("chain id mismatch: node serves %s, configured %d", chainID, cfg.ChainID)
	}

	logger.Info("loaded chain params",
		zap.String("chain_id", chainID.String()),
		zap.String("contract", contract.Hex()))

	return nil
}
