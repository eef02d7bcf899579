package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	TransactionQueuedEvent    = "TransactionQueued"
	PendingTransactionsMethod = "pendingTransactions"
	ApproveTransactionMethod  = "approveTransaction"
	RejectTransactionMethod   = "rejectTransaction"
)

// OracleABI is the part of the oracle contract ABI the relayer works with.
const OracleABI = `[
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"uint256","name":"txId","type":"uint256"}],"name":"TransactionQueued","type":"event"},
	{"inputs":[{"internalType":"uint256","name":"","type":"uint256"}],"name":"pendingTransactions","outputs":[{"internalType":"address","name":"sender","type":"address"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"gasPrice","type":"uint256"},{"internalType":"uint256","name":"timestamp","type":"uint256"},{"internalType":"string","name":"reason","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"txId","type":"uint256"}],"name":"approveTransaction","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"txId","type":"uint256"}],"name":"rejectTransaction","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var (
	oracleABI = mustParseABI(OracleABI)

	// TransactionQueuedTopic is topic[0] of TransactionQueued logs.
	TransactionQueuedTopic = oracleABI.Events[TransactionQueuedEvent].ID
)

// OracleContractABI returns the parsed oracle contract ABI.
func OracleContractABI() abi.ABI {
	return oracleABI
}

// pendingTransaction mirrors the outputs of pendingTransactions(uint256).
type pendingTransaction struct {
	Sender    common.Address
	Recipient common.Address
	Amount    *big.Int
	GasPrice  *big.Int
	Timestamp *big.Int
	Reason    string
}

// PackSettlement returns the calldata of approveTransaction(txID) or rejectTransaction(txID).
func PackSettlement(txID *big.Int, approved bool) ([]byte, error) {
	method := RejectTransactionMethod
	if approved {
		method = ApproveTransactionMethod
	}

	return oracleABI.Pack(method, txID)
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
