package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"
	nlogger "github.com/neutron-org/neutron-logger"
	"go.uber.org/zap"

	"github.com/oracle-relayer/oracle-relayer/internal/chain"
	"github.com/oracle-relayer/oracle-relayer/internal/config"
	"github.com/oracle-relayer/oracle-relayer/internal/keyring"
	"github.com/oracle-relayer/oracle-relayer/internal/scorer"
	"github.com/oracle-relayer/oracle-relayer/internal/submit"
)

type DependencyContainer struct {
	client      *ethclient.Client
	chainReader *chain.Reader
	scorer      *scorer.Client
	txSender    *submit.TxSender
}

func NewDefaultDependencyContainer(ctx context.Context,
	cfg config.OracleRelayerConfig,
	logRegistry *nlogger.Registry) (*DependencyContainer, error) {
	client, err := chain.NewRPCClient(ctx, cfg.Chain.RPCAddr, cfg.Chain.Timeout)
	if err != nil {
		return nil, fmt.Errorf("could not initialize rpc client: %w", err)
	}

	if err := checkChainParams(ctx, client, cfg.Chain, logRegistry.Get(AppContext)); err != nil {
		client.Close()
		return nil, fmt.Errorf("cannot load chain params: %w", err)
	}

	contract := common.HexToAddress(cfg.Chain.ContractAddress)
	chainReader := chain.NewReader(client, chain.ReaderConfig{
		Contract:      contract,
		Confirmations: cfg.Chain.Confirmations,
		MaxBlockRange: cfg.Chain.MaxBlockRange,
		Timeout:       cfg.Chain.Timeout,
	}, logRegistry.Get(ChainReaderContext))

	scorerClient, err := scorer.NewClient(scorer.Config{
		URL:       cfg.Scorer.URL,
		Timeout:   cfg.Scorer.Timeout,
		RateLimit: cfg.Scorer.RateLimit,
		Attempts:  cfg.Scorer.Retry.Attempts,
		Delay:     cfg.Scorer.Retry.Delay,
		MaxDelay:  cfg.Scorer.Retry.MaxDelay,
	}, logRegistry.Get(ScorerContext))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("cannot create scorer client: %w", err)
	}

	signer, err := keyring.InitializeKeyring(uint64(cfg.Chain.ChainID), cfg.Signer.PrivateKey, cfg.Signer.KeystoreFile, cfg.Signer.KeystorePassword)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("cannot initialize keyring: %w", err)
	}

	var gasPrice *big.Int
	if cfg.Chain.GasPriceGwei > 0 {
		gasPrice = new(big.Int).Mul(new(big.Int).SetUint64(cfg.Chain.GasPriceGwei), big.NewInt(params.GWei))
	}

	txSender, err := submit.NewTxSender(ctx, client, signer, submit.Config{
		Contract:            contract,
		GasLimit:            cfg.Chain.GasLimit,
		GasPrice:            gasPrice,
		ConfirmationTimeout: cfg.Chain.ConfirmationTimeout,
	}, logRegistry.Get(TxSenderContext))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("cannot create tx sender: %w", err)
	}

	logRegistry.Get(AppContext).Info("oracle account loaded", zap.String("address", signer.Address().Hex()))

	return &DependencyContainer{
		client:      client,
		chainReader: chainReader,
		scorer:      scorerClient,
		txSender:    txSender,
	}, nil
}

func (c DependencyContainer) GetChainReader() *chain.Reader {
	return c.chainReader
}

func (c DependencyContainer) GetScorer() *scorer.Client {
	return c.scorer
}

func (c DependencyContainer) GetTxSender() *submit.TxSender {
	return c.txSender
}

// Close releases the rpc connection.
func (c DependencyContainer) Close() {
	c.client.Close()
}
