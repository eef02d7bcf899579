package submit

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/oracle-relayer/oracle-relayer/internal/chain"
	"github.com/oracle-relayer/oracle-relayer/internal/keyring"
	"github.com/oracle-relayer/oracle-relayer/internal/relay"
	mock_submit "github.com/oracle-relayer/oracle-relayer/testutil/mocks/submit"
)

var testContract = common.HexToAddress("0x2E9d30761DB97706C536A112B9466433032b28e3")

func setupTest(t *testing.T, mockClient *mock_submit.MockClient, initialNonce uint64) *TxSender {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := keyring.NewSigner(11155111, key)

	mockClient.EXPECT().PendingNonceAt(gomock.Any(), signer.Address()).Return(initialNonce, nil)

	txs, err := NewTxSender(context.Background(), mockClient, signer, Config{
		Contract:            testContract,
		GasLimit:            200_000,
		GasPrice:            big.NewInt(50_000_000_000),
		ConfirmationTimeout: time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	return txs
}

func minedReceipt(status uint64) func(context.Context, common.Hash) (*types.Receipt, error) {
	return func(_ context.Context, hash common.Hash) (*types.Receipt, error) {
		return &types.Receipt{TxHash: hash, Status: status, BlockNumber: big.NewInt(10), GasUsed: 42_000}, nil
	}
}

func TestSubmitApproveAndReject(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_submit.NewMockClient(ctrl)
	txs := setupTest(t, mockClient, 5)

	var sent []*types.Transaction
	mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tx *types.Transaction) error {
			sent = append(sent, tx)
			return nil
		}).Times(2)
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).DoAndReturn(minedReceipt(types.ReceiptStatusSuccessful)).Times(2)

	receipt, err := txs.Submit(context.Background(), big.NewInt(1), true)
	require.NoError(t, err)
	assert.Equal(t, sent[0].Hash(), receipt.TxHash)
	assert.Equal(t, uint64(10), receipt.BlockNumber)

	_, err = txs.Submit(context.Background(), big.NewInt(2), false)
	require.NoError(t, err)

	require.Len(t, sent, 2)
	assert.Equal(t, uint64(5), sent[0].Nonce())
	assert.Equal(t, uint64(6), sent[1].Nonce())
	assert.Equal(t, testContract, *sent[0].To())

	approve, err := chain.PackSettlement(big.NewInt(1), true)
	require.NoError(t, err)
	reject, err := chain.PackSettlement(big.NewInt(2), false)
	require.NoError(t, err)
	assert.Equal(t, approve, sent[0].Data())
	assert.Equal(t, reject, sent[1].Data())
	assert.Equal(t, uint64(7), txs.Nonce())
}

func TestConcurrentSubmitsGetDistinctNonces(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_submit.NewMockClient(ctrl)
	txs := setupTest(t, mockClient, 0)

	const n = 10
	var (
		mu     sync.Mutex
		nonces []uint64
	)
	mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tx *types.Transaction) error {
			mu.Lock()
			defer mu.Unlock()
			nonces = append(nonces, tx.Nonce())
			return nil
		}).Times(n)
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).DoAndReturn(minedReceipt(types.ReceiptStatusSuccessful)).Times(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := txs.Submit(context.Background(), big.NewInt(id), id%2 == 0)
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()

	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
	for i, nonce := range nonces {
		assert.Equal(t, uint64(i), nonce)
	}
}

func TestStaleNonceIsRefreshedOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_submit.NewMockClient(ctrl)
	txs := setupTest(t, mockClient, 3)

	gomock.InOrder(
		mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, tx *types.Transaction) error {
				assert.Equal(t, uint64(3), tx.Nonce())
				return errors.New("nonce too low: next nonce 9, tx nonce 3")
			}),
		mockClient.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(9), nil),
		mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, tx *types.Transaction) error {
				assert.Equal(t, uint64(9), tx.Nonce())
				return nil
			}),
	)
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).DoAndReturn(minedReceipt(types.ReceiptStatusSuccessful))

	_, err := txs.Submit(context.Background(), big.NewInt(1), true)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), txs.Nonce())
}

func TestStaleNonceTwiceIsRetryable(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_submit.NewMockClient(ctrl)
	txs := setupTest(t, mockClient, 3)

	mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(errors.New("nonce too low")).Times(2)
	mockClient.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(4), nil)

	_, err := txs.Submit(context.Background(), big.NewInt(1), true)
	require.Error(t, err)
	assert.True(t, relay.IsSubmitRetryable(err))
}

func TestAlreadyKnownConsumesNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_submit.NewMockClient(ctrl)
	txs := setupTest(t, mockClient, 3)

	var hash common.Hash
	mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tx *types.Transaction) error {
			hash = tx.Hash()
			return errors.New("already known")
		})
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).DoAndReturn(minedReceipt(types.ReceiptStatusSuccessful))

	receipt, err := txs.Submit(context.Background(), big.NewInt(1), true)
	require.NoError(t, err)
	assert.Equal(t, hash, receipt.TxHash)
	assert.Equal(t, uint64(4), txs.Nonce())
}

func TestFailedBroadcastDoesNotConsumeNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_submit.NewMockClient(ctrl)
	txs := setupTest(t, mockClient, 3)

	mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	_, err := txs.Submit(context.Background(), big.NewInt(1), true)
	require.Error(t, err)
	assert.True(t, relay.IsSubmitRetryable(err))
	assert.Equal(t, uint64(3), txs.Nonce())

	// the next submission reloads the nonce before signing
	gomock.InOrder(
		mockClient.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(3), nil),
		mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, tx *types.Transaction) error {
				assert.Equal(t, uint64(3), tx.Nonce())
				return nil
			}),
	)
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).DoAndReturn(minedReceipt(types.ReceiptStatusSuccessful))

	_, err = txs.Submit(context.Background(), big.NewInt(1), true)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), txs.Nonce())
}

func TestRevertedSettlement(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_submit.NewMockClient(ctrl)
	txs := setupTest(t, mockClient, 0)

	mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(nil)
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).DoAndReturn(minedReceipt(types.ReceiptStatusFailed))

	receipt, err := txs.Submit(context.Background(), big.NewInt(1), false)
	assert.ErrorIs(t, err, relay.ErrReverted)
	assert.False(t, relay.IsSubmitRetryable(err))
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	assert.Equal(t, uint64(1), txs.Nonce())
}

func TestConfirmationTimeoutIsRetryable(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_submit.NewMockClient(ctrl)
	txs := setupTest(t, mockClient, 0)
	txs.cfg.ConfirmationTimeout = 50 * time.Millisecond

	var hash common.Hash
	mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tx *types.Transaction) error {
			hash = tx.Hash()
			return nil
		})
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).Return(nil, ethereum.NotFound).AnyTimes()

	_, err := txs.Submit(context.Background(), big.NewInt(1), true)
	require.Error(t, err)

	var retryable *relay.ErrSubmitRetryable
	require.ErrorAs(t, err, &retryable)
	assert.Equal(t, hash, retryable.TxHash)
}

func TestSuggestedGasPrice(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_submit.NewMockClient(ctrl)
	txs := setupTest(t, mockClient, 0)
	txs.cfg.GasPrice = nil

	mockClient.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(7), nil)
	mockClient.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tx *types.Transaction) error {
			assert.Equal(t, int64(7), tx.GasPrice().Int64())
			return nil
		})
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).DoAndReturn(minedReceipt(types.ReceiptStatusSuccessful))

	_, err := txs.Submit(context.Background(), big.NewInt(1), true)
	require.NoError(t, err)
}

func TestReceipt(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_submit.NewMockClient(ctrl)
	txs := setupTest(t, mockClient, 0)

	pending := common.HexToHash("0x01")
	mined := common.HexToHash("0x02")
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), pending).Return(nil, ethereum.NotFound)
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), mined).DoAndReturn(minedReceipt(types.ReceiptStatusSuccessful))
	mockClient.EXPECT().TransactionReceipt(gomock.Any(), common.HexToHash("0x03")).Return(nil, errors.New("connection refused"))

	_, err := txs.Receipt(context.Background(), pending)
	assert.ErrorIs(t, err, relay.ErrNotFound)

	receipt, err := txs.Receipt(context.Background(), mined)
	require.NoError(t, err)
	assert.Equal(t, mined, receipt.TxHash)
	assert.Equal(t, relay.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, uint64(10), receipt.BlockNumber)

	_, err = txs.Receipt(context.Background(), common.HexToHash("0x03"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, relay.ErrNotFound)
}
