// Package rpc keeps a pool of web3 endpoints serving the same chain. The pool
// implements the subset of the ethclient API the relief transfers need and
// balances the calls across the endpoints, switching to the next one when an
// endpoint fails. When every endpoint has failed the pool enables them all
// again and starts over.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vocdoni/aadhaar-relief/log"
)

const (
	// DefaultMaxWeb3ClientRetries is the default number of retries to connect to
	// a web3 provider.
	DefaultMaxWeb3ClientRetries = 5
	// checkWeb3EndpointsTimeout is the timeout to check the web3 endpoints.
	checkWeb3EndpointsTimeout = time.Second * 10
)

// Web3Endpoint is a web3 provider of the pool.
type Web3Endpoint struct {
	ChainID   uint64
	URI       string
	client    *ethclient.Client
	available bool
}

// Web3Pool holds the endpoints of a single chain.
type Web3Pool struct {
	mu        sync.Mutex
	chainID   uint64
	endpoints []*Web3Endpoint
	next      int
}

// NewWeb3Pool method returns a new empty *Web3Pool instance.
func NewWeb3Pool() *Web3Pool {
	return &Web3Pool{}
}

// AddEndpoint method adds a new web3 provider URI to the Web3Pool. The first
// endpoint fixes the chainID of the pool, later endpoints must serve the same
// chain. It returns the chainID of the endpoint.
func (p *Web3Pool) AddEndpoint(uri string) (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkWeb3EndpointsTimeout)
	defer cancel()
	// init the web3 client
	client, err := connect(ctx, uri)
	if err != nil {
		return 0, err
	}
	// get the chainID from the web3 endpoint
	bChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return 0, fmt.Errorf("error getting the chainID from the web3 provider '%s': %w", uri, err)
	}
	chainID := bChainID.Uint64()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.endpoints) > 0 && p.chainID != chainID {
		client.Close()
		return 0, fmt.Errorf("web3 provider '%s' serves chainID %d, the pool serves %d", uri, chainID, p.chainID)
	}
	p.chainID = chainID
	p.endpoints = append(p.endpoints, &Web3Endpoint{
		ChainID:   chainID,
		URI:       uri,
		client:    client,
		available: true,
	})
	log.Infow("web3 endpoint added", "uri", uri, "chainID", chainID)
	return chainID, nil
}

// DisableEndpoint method sets the available flag to false for the URI
// provided.
func (p *Web3Pool) DisableEndpoint(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.endpoints {
		if e.URI == uri {
			e.available = false
		}
	}
}

// NumberOfEndpoints method returns the total number (or just the available
// ones) of endpoints of the pool.
func (p *Web3Pool) NumberOfEndpoints(onlyAvailable bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !onlyAvailable {
		return len(p.endpoints)
	}
	n := 0
	for _, e := range p.endpoints {
		if e.available {
			n++
		}
	}
	return n
}

// Endpoint returns the next available endpoint, round robin. If every
// endpoint is disabled they are all enabled again.
func (p *Web3Pool) Endpoint() (*Web3Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.endpoints) == 0 {
		return nil, fmt.Errorf("no web3 endpoint available")
	}
	for range 2 {
		for i := 0; i < len(p.endpoints); i++ {
			e := p.endpoints[(p.next+i)%len(p.endpoints)]
			if e.available {
				p.next = (p.next + i + 1) % len(p.endpoints)
				return e, nil
			}
		}
		log.Warnw("all web3 endpoints failed, enabling them again", "chainID", p.chainID)
		for _, e := range p.endpoints {
			e.available = true
		}
	}
	return nil, fmt.Errorf("no web3 endpoint available")
}

// Close closes the clients of every endpoint.
func (p *Web3Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.endpoints {
		e.client.Close()
	}
}

// call runs fn on the endpoints until one succeeds, disabling the ones that
// fail. ethereum.NotFound is an answer, not an endpoint failure.
func (p *Web3Pool) call(ctx context.Context, fn func(*ethclient.Client) error) error {
	var lastErr error
	for range p.NumberOfEndpoints(false) {
		e, err := p.Endpoint()
		if err != nil {
			return err
		}
		err = fn(e.client)
		if err == nil || errors.Is(err, ethereum.NotFound) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		log.Warnw("web3 call failed, switching endpoint", "uri", e.URI, "error", err)
		p.DisableEndpoint(e.URI)
		lastErr = err
	}
	if lastErr == nil {
		return fmt.Errorf("no web3 endpoint available")
	}
	return lastErr
}

// ChainID returns the chainID served by the pool.
func (p *Web3Pool) ChainID(_ context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.endpoints) == 0 {
		return nil, fmt.Errorf("no web3 endpoint available")
	}
	return new(big.Int).SetUint64(p.chainID), nil
}

// PendingNonceAt returns the account nonce in the pending state.
func (p *Web3Pool) PendingNonceAt(ctx context.Context, account common.Address) (nonce uint64, err error) {
	err = p.call(ctx, func(c *ethclient.Client) error {
		nonce, err = c.PendingNonceAt(ctx, account)
		return err
	})
	return nonce, err
}

// SuggestGasTipCap returns the suggested priority fee.
func (p *Web3Pool) SuggestGasTipCap(ctx context.Context) (tip *big.Int, err error) {
	err = p.call(ctx, func(c *ethclient.Client) error {
		tip, err = c.SuggestGasTipCap(ctx)
		return err
	})
	return tip, err
}

// HeaderByNumber returns a block header, the latest one if number is nil.
func (p *Web3Pool) HeaderByNumber(ctx context.Context, number *big.Int) (header *gethtypes.Header, err error) {
	err = p.call(ctx, func(c *ethclient.Client) error {
		header, err = c.HeaderByNumber(ctx, number)
		return err
	})
	return header, err
}

// SendTransaction submits a signed transaction.
func (p *Web3Pool) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	return p.call(ctx, func(c *ethclient.Client) error {
		return c.SendTransaction(ctx, tx)
	})
}

// TransactionByHash returns the transaction with the given hash and whether
// it is still pending, or ethereum.NotFound.
func (p *Web3Pool) TransactionByHash(ctx context.Context, hash common.Hash) (tx *gethtypes.Transaction, pending bool, err error) {
	err = p.call(ctx, func(c *ethclient.Client) error {
		tx, pending, err = c.TransactionByHash(ctx, hash)
		return err
	})
	return tx, pending, err
}

// TransactionReceipt returns the receipt of a mined transaction, or
// ethereum.NotFound.
func (p *Web3Pool) TransactionReceipt(ctx context.Context, hash common.Hash) (receipt *gethtypes.Receipt, err error) {
	err = p.call(ctx, func(c *ethclient.Client) error {
		receipt, err = c.TransactionReceipt(ctx, hash)
		return err
	})
	return receipt, err
}

// BalanceAt returns the balance of the account, at the latest block if
// number is nil.
func (p *Web3Pool) BalanceAt(ctx context.Context, account common.Address, number *big.Int) (balance *big.Int, err error) {
	err = p.call(ctx, func(c *ethclient.Client) error {
		balance, err = c.BalanceAt(ctx, account, number)
		return err
	})
	return balance, err
}

// connect method returns a new *ethclient.Client instance for the URI provided.
// It retries to connect to the web3 provider if it fails, up to the
// DefaultMaxWeb3ClientRetries times.
func connect(ctx context.Context, uri string) (client *ethclient.Client, err error) {
	for i := 0; i < DefaultMaxWeb3ClientRetries; i++ {
		if client, err = ethclient.DialContext(ctx, uri); err != nil {
			continue
		}
		return
	}
	return nil, fmt.Errorf("error dialing web3 provider uri '%s': %w", uri, err)
}
