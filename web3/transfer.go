// Package web3 pays the relief claims on chain. NativeTransferer signs plain
// native currency transfers from a hot wallet and waits for them to be mined.
// It also checks the donations deposited into the hot wallet.
package web3

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/types"
	"github.com/vocdoni/aadhaar-relief/util"
)

const (
	// transferGasLimit is the gas used by a plain value transfer.
	transferGasLimit = 21000
	// DefaultReceiptPollInterval is the interval between receipt queries.
	DefaultReceiptPollInterval = 2 * time.Second
	// DefaultReceiptTimeout bounds the wait for a transfer to be mined.
	DefaultReceiptTimeout = 2 * time.Minute
	// web3QueryTimeout bounds every single query to the backend.
	web3QueryTimeout = 10 * time.Second
)

// Backend is the subset of the ethclient API used by the transferer. It is
// satisfied by *ethclient.Client and by *rpc.Web3Pool.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionByHash(ctx context.Context, txHash common.Hash) (tx *gethtypes.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// NativeTransferer sends native currency from a hot wallet. Transfers are
// serialized, so the pending nonce is never reused.
type NativeTransferer struct {
	backend Backend
	privKey *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	signer  gethtypes.Signer

	// PollInterval and Timeout tune the wait for the receipt.
	PollInterval time.Duration
	Timeout      time.Duration

	mu sync.Mutex
}

// NewNativeTransferer creates a transferer for the hot wallet private key
// (hex, with or without 0x prefix) on the chain served by the backend.
func NewNativeTransferer(ctx context.Context, backend Backend, hexPrivKey string) (*NativeTransferer, error) {
	if backend == nil {
		return nil, fmt.Errorf("missing web3 backend")
	}
	privKey, err := crypto.HexToECDSA(util.TrimHex(hexPrivKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	chainID, err := backend.ChainID(qctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chainID: %w", err)
	}
	t := &NativeTransferer{
		backend:      backend,
		privKey:      privKey,
		address:      crypto.PubkeyToAddress(privKey.PublicKey),
		chainID:      chainID,
		signer:       gethtypes.LatestSignerForChainID(chainID),
		PollInterval: DefaultReceiptPollInterval,
		Timeout:      DefaultReceiptTimeout,
	}
	log.Infow("native transferer ready", "address", t.address.Hex(), "chainID", chainID.String())
	return t, nil
}

// Address returns the hot wallet address.
func (t *NativeTransferer) Address() common.Address {
	return t.address
}

// Balance returns the hot wallet balance at the latest block.
func (t *NativeTransferer) Balance(ctx context.Context) (*big.Int, error) {
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	balance, err := t.backend.BalanceAt(qctx, t.address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get hot wallet balance: %w", err)
	}
	return balance, nil
}

// Transfer sends amount to the recipient and waits for the transaction to be
// mined. It returns the transaction hash. A transaction rejected by the node
// or that reverts is an error. Once the transaction may have reached the
// network the transfer is not reported as failed, so the claim it pays is
// never rolled back while the payment can still be mined.
func (t *NativeTransferer) Transfer(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("invalid transfer amount")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.buildTx(ctx, to, amount)
	if err != nil {
		return "", err
	}
	signed, err := gethtypes.SignTx(tx, t.signer, t.privKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hash := signed.Hash()
	sctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	err = t.backend.SendTransaction(sctx, signed)
	cancel()
	if err != nil {
		if !t.knownTx(ctx, hash) && rejectedByNode(err) {
			return "", fmt.Errorf("failed to send transaction: %w", err)
		}
		log.Warnw("transfer may have been broadcast despite the send error",
			"hash", hash.Hex(), "to", to.Hex(), "error", err.Error())
	} else {
		log.Debugw("transfer sent", "hash", hash.Hex(), "to", to.Hex(), "amount", types.FormatFunds(amount))
	}

	receipt, err := t.waitReceipt(ctx, hash)
	if err != nil {
		log.Warnw("transfer sent but not confirmed", "hash", hash.Hex(), "error", err.Error())
		return hash.Hex(), nil
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return hash.Hex(), fmt.Errorf("transaction %s reverted", hash.Hex())
	}
	log.Infow("transfer mined",
		"hash", hash.Hex(),
		"to", to.Hex(),
		"amount", types.FormatFunds(amount),
		"block", receipt.BlockNumber.String())
	return hash.Hex(), nil
}

// VerifyDeposit checks that txHash is a successful transfer of exactly
// amount from the donor to the hot wallet.
func (t *NativeTransferer) VerifyDeposit(ctx context.Context, from common.Address, txHash common.Hash, amount *big.Int) error {
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	tx, pending, err := t.backend.TransactionByHash(qctx, txHash)
	if err != nil {
		return fmt.Errorf("deposit %s not found: %w", txHash.Hex(), err)
	}
	if pending {
		return fmt.Errorf("deposit %s is not mined yet", txHash.Hex())
	}
	if tx.To() == nil || *tx.To() != t.address {
		return fmt.Errorf("deposit %s is not addressed to the hot wallet %s", txHash.Hex(), t.address.Hex())
	}
	if amount == nil || tx.Value().Cmp(amount) != 0 {
		return fmt.Errorf("deposit %s carries %s, not %s", txHash.Hex(), tx.Value(), amount)
	}
	sender, err := gethtypes.Sender(t.signer, tx)
	if err != nil {
		return fmt.Errorf("could not recover the deposit sender: %w", err)
	}
	if sender != from {
		return fmt.Errorf("deposit %s was sent by %s, not %s", txHash.Hex(), sender.Hex(), from.Hex())
	}
	receipt, err := t.backend.TransactionReceipt(qctx, txHash)
	if err != nil {
		return fmt.Errorf("could not get the deposit receipt: %w", err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return fmt.Errorf("deposit %s reverted", txHash.Hex())
	}
	return nil
}

// knownTx tells whether the backend already has the transaction, pending or
// mined.
func (t *NativeTransferer) knownTx(ctx context.Context, hash common.Hash) bool {
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	_, _, err := t.backend.TransactionByHash(qctx, hash)
	return err == nil
}

// rejectedByNode reports whether the send error is an answer of the node,
// which did not accept the transaction. Transport errors and timeouts leave
// the outcome unknown.
func rejectedByNode(err error) bool {
	var rpcErr gethrpc.Error
	return errors.As(err, &rpcErr)
}

// buildTx creates the dynamic fee transaction, with a fee cap of twice the
// current base fee plus the suggested tip.
func (t *NativeTransferer) buildTx(ctx context.Context, to common.Address, amount *big.Int) (*gethtypes.Transaction, error) {
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	nonce, err := t.backend.PendingNonceAt(qctx, t.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	tip, err := t.backend.SuggestGasTipCap(qctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	head, err := t.backend.HeaderByNumber(qctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	return gethtypes.NewTx(&gethtypes.DynamicFeeTx{
		ChainID:   t.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       transferGasLimit,
		To:        &to,
		Value:     new(big.Int).Set(amount),
	}), nil
}

// waitReceipt polls the backend until the receipt is available, the context
// is done or the timeout expires.
func (t *NativeTransferer) waitReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()
	ticker := time.NewTicker(t.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := t.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			return receipt, nil
		case !errors.Is(err, ethereum.NotFound):
			log.Warnw("failed to get transaction receipt", "hash", hash.Hex(), "error", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
