package keyring

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs settlement transactions with the oracle key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	signer  types.Signer
}

// InitializeKeyring loads the oracle key either from a hex encoded private key or from an
// encrypted keystore file. Exactly one of the two must be set.
func InitializeKeyring(chainID uint64, privateKey, keystoreFile, keystorePassword string) (*Signer, error) {
	var (
		key *ecdsa.PrivateKey
		err error
	)

	switch {
	case privateKey != "" && keystoreFile != "":
		return nil, fmt.Errorf("both private key and keystore file are set")
	case privateKey != "":
		key, err = crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKey), "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
	case keystoreFile != "":
		data, err := os.ReadFile(keystoreFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read keystore file %s: %w", keystoreFile, err)
		}
		decrypted, err := keystore.DecryptKey(data, keystorePassword)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt keystore file %s: %w", keystoreFile, err)
		}
		key = decrypted.PrivateKey
	default:
		return nil, fmt.Errorf("no signing key configured")
	}

	return NewSigner(chainID, key), nil
}

func NewSigner(chainID uint64, key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		signer:  types.NewEIP155Signer(new(big.Int).SetUint64(chainID)),
	}
}

// Address returns the oracle address the contract expects settlements from.
func (s *Signer) Address() common.Address {
	return s.address
}

func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	return types.SignTx(tx, s.signer, s.key)
}
