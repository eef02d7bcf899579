package submit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/oracle-relayer/oracle-relayer/internal/chain"
	"github.com/oracle-relayer/oracle-relayer/internal/metrics"
	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

//go:generate mockgen -source=tx_sender.go -destination=../../testutil/mocks/submit/mocks.go -package=mock_submit -exclude_interfaces=Signer

// Client is the subset of ethclient.Client the TxSender needs.
type Client interface {
	bind.DeployBackend
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction) (*types.Transaction, error)
}

type Config struct {
	Contract common.Address
	GasLimit uint64
	// GasPrice is used for every settlement; if nil the node's suggestion is used.
	GasPrice            *big.Int
	ConfirmationTimeout time.Duration
}

// errors the node returns when the nonce we used is stale
var nonceErrors = []string{
	"nonce too low",
	"nonce too high",
	"replacement transaction underpriced",
	"invalid nonce",
}

// TxSender implements relay.Submitter. Broadcasts are serialized under lock so every settlement
// gets the next nonce of the oracle account; waiting for the receipt happens outside the lock.
type TxSender struct {
	lock         sync.Mutex
	nonce        uint64
	needsRefresh bool
	client       Client
	signer       Signer
	cfg          Config
	logger       *zap.Logger
}

func NewTxSender(ctx context.Context, client Client, signer Signer, cfg Config, logger *zap.Logger) (*TxSender, error) {
	txs := &TxSender{
		client: client,
		signer: signer,
		cfg:    cfg,
		logger: logger,
	}
	err := txs.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init tx sender: %w", err)
	}

	return txs, nil
}

// Init loads the pending nonce of the oracle account.
func (txs *TxSender) Init(ctx context.Context) error {
	txs.lock.Lock()
	defer txs.lock.Unlock()

	return txs.refreshNonce(ctx)
}

// Nonce returns the nonce the next settlement will be sent with.
func (txs *TxSender) Nonce() uint64 {
	txs.lock.Lock()
	defer txs.lock.Unlock()

	return txs.nonce
}

// SenderAddr returns the oracle address.
func (txs *TxSender) SenderAddr() common.Address {
	return txs.signer.Address()
}

// Submit implements relay.Submitter.
func (txs *TxSender) Submit(ctx context.Context, txID *big.Int, approved bool) (relay.Receipt, error) {
	data, err := chain.PackSettlement(txID, approved)
	if err != nil {
		return relay.Receipt{}, fmt.Errorf("could not build settlement call: %w", err)
	}

	tx, err := txs.Send(ctx, data)
	if err != nil {
		return relay.Receipt{}, err
	}

	txs.logger.Debug("settlement broadcast",
		zap.String("tx_id", txID.String()),
		zap.Bool("approved", approved),
		zap.Uint64("nonce", tx.Nonce()),
		zap.String("tx_hash", tx.Hash().Hex()))

	return txs.waitMined(ctx, tx)
}

// Send signs a call to the oracle contract with the next nonce and broadcasts it. A stale nonce
// is refreshed from the node and the broadcast is tried once more.
func (txs *TxSender) Send(ctx context.Context, data []byte) (*types.Transaction, error) {
	txs.lock.Lock()
	defer txs.lock.Unlock()

	if txs.needsRefresh {
		if err := txs.refreshNonce(ctx); err != nil {
			return nil, relay.NewErrSubmitRetryable(common.Hash{}, err)
		}
	}

	tx, err := txs.signAndSend(ctx, data)
	if err != nil && isNonceError(err) {
		txs.logger.Warn("stale nonce, reinitializing sender", zap.Uint64("nonce", txs.nonce), zap.Error(err))
		metrics.IncNonceRefreshes()
		if errRefresh := txs.refreshNonce(ctx); errRefresh != nil {
			metrics.IncFailedTxSubmit()
			return nil, relay.NewErrSubmitRetryable(common.Hash{}, fmt.Errorf("failed to reinit sender: %w", errRefresh))
		}
		tx, err = txs.signAndSend(ctx, data)
	}
	if err != nil {
		txs.needsRefresh = true
		metrics.IncFailedTxSubmit()
		return nil, relay.NewErrSubmitRetryable(common.Hash{}, fmt.Errorf("error broadcasting transaction: %w", err))
	}

	txs.nonce++
	metrics.SetNonce(txs.nonce)
	metrics.IncSuccessTxSubmit()

	return tx, nil
}

func (txs *TxSender) signAndSend(ctx context.Context, data []byte) (*types.Transaction, error) {
	gasPrice := txs.cfg.GasPrice
	if gasPrice == nil || gasPrice.Sign() == 0 {
		var err error
		gasPrice, err = txs.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
	}

	contract := txs.cfg.Contract
	tx, err := txs.signer.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    txs.nonce,
		To:       &contract,
		Gas:      txs.cfg.GasLimit,
		GasPrice: gasPrice,
		Data:     data,
	}))
	if err != nil {
		return nil, fmt.Errorf("error signing transaction: %w", err)
	}

	if err := txs.client.SendTransaction(ctx, tx); err != nil {
		// the node already holds this exact signed transaction, so the nonce is spent
		if strings.Contains(strings.ToLower(err.Error()), "already known") {
			txs.logger.Debug("settlement already in the pool", zap.String("tx_hash", tx.Hash().Hex()))
			return tx, nil
		}
		return nil, err
	}

	return tx, nil
}

// refreshNonce must be called under lock.
func (txs *TxSender) refreshNonce(ctx context.Context) error {
	nonce, err := txs.client.PendingNonceAt(ctx, txs.signer.Address())
	if err != nil {
		return fmt.Errorf("error fetching pending nonce of %s: %w", txs.signer.Address().Hex(), err)
	}

	txs.nonce = nonce
	txs.needsRefresh = false
	metrics.SetNonce(nonce)

	return nil
}

// Receipt implements relay.Submitter.
func (txs *TxSender) Receipt(ctx context.Context, txHash common.Hash) (relay.Receipt, error) {
	receipt, err := txs.client.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return relay.Receipt{}, fmt.Errorf("settlement %s is not mined: %w", txHash.Hex(), relay.ErrNotFound)
	}
	if err != nil {
		return relay.Receipt{}, fmt.Errorf("failed to get receipt of %s: %w", txHash.Hex(), err)
	}

	return toReceipt(receipt), nil
}

func (txs *TxSender) waitMined(ctx context.Context, tx *types.Transaction) (relay.Receipt, error) {
	waitCtx := ctx
	if txs.cfg.ConfirmationTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, txs.cfg.ConfirmationTimeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(waitCtx, txs.client, tx)
	if err != nil {
		if ctx.Err() != nil {
			return relay.Receipt{}, ctx.Err()
		}
		return relay.Receipt{}, relay.NewErrSubmitRetryable(tx.Hash(),
			fmt.Errorf("transaction was not mined within %s: %w", txs.cfg.ConfirmationTimeout, err))
	}

	res := toReceipt(receipt)
	if receipt.Status != types.ReceiptStatusSuccessful {
		return res, fmt.Errorf("%w: %s", relay.ErrReverted, receipt.TxHash.Hex())
	}

	return res, nil
}

func toReceipt(receipt *types.Receipt) relay.Receipt {
	res := relay.Receipt{
		TxHash:  receipt.TxHash,
		GasUsed: receipt.GasUsed,
		Status:  receipt.Status,
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}

	return res
}

func isNonceError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range nonceErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
