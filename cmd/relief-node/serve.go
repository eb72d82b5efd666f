package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vocdoni/aadhaar-relief/aadhaar"
	"github.com/vocdoni/aadhaar-relief/api"
	"github.com/vocdoni/aadhaar-relief/config"
	"github.com/vocdoni/aadhaar-relief/event"
	"github.com/vocdoni/aadhaar-relief/ledger"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/service"
	"github.com/vocdoni/aadhaar-relief/storage"
	"github.com/vocdoni/aadhaar-relief/types"
	"github.com/vocdoni/aadhaar-relief/web3"
	"github.com/vocdoni/aadhaar-relief/web3/rpc"
	"github.com/vocdoni/arbo/memdb"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relief ledger node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFromContext(cmd.Context())
			if cfg == nil {
				return fmt.Errorf("no config found in context")
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg)
		},
	}
}

// node keeps the running components, so they can be stopped in order.
type node struct {
	stg      *storage.Storage
	bus      *event.EventBus
	pool     *rpc.Web3Pool
	activity *service.ActivityMonitor
	funds    *service.FundsMonitor
	api      *service.APIService
}

func (n *node) stop() {
	if n.api != nil {
		n.api.Stop()
	}
	if n.funds != nil {
		n.funds.Stop()
	}
	if n.activity != nil {
		n.activity.Stop()
	}
	if n.bus != nil {
		n.bus.Stop()
	}
	if n.pool != nil {
		n.pool.Close()
	}
	if n.stg != nil {
		n.stg.Close()
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	n := &node{}
	defer n.stop()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	n.stg = storage.New(database)
	n.bus = event.NewEventBus(promRegistry)

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	var (
		transferer ledger.Transferer
		deposits   ledger.DepositVerifier
		wallet     service.WalletBalance
		vault      *ledger.Vault
	)
	switch cfg.TransferMode {
	case config.TransferWeb3:
		n.pool, err = newWeb3Pool(cfg)
		if err != nil {
			return err
		}
		hot, err := web3.NewNativeTransferer(ctx, n.pool, cfg.HotWalletKey)
		if err != nil {
			return fmt.Errorf("could not set up the hot wallet: %w", err)
		}
		transferer, deposits, wallet = hot, hot, hot
	default:
		vault = ledger.NewVault()
		log.Warnw("claims are paid from an in-memory vault, funds are not persisted")
		transferer, wallet = vault, service.VaultWallet{Vault: vault}
	}

	operator, err := cfg.OperatorAddress()
	if err != nil {
		return err
	}
	claimAmount, err := cfg.ClaimAmountWei()
	if err != nil {
		return err
	}
	l, err := ledger.New(n.stg, verifier, transferer, ledger.Config{
		Operator:     operator,
		ClaimAmount:  claimAmount,
		MaxProofAge:  cfg.MaxProofAge,
		ClockSkew:    cfg.ClockSkew,
		Deposits:     deposits,
		Events:       n.bus,
		PromRegistry: promRegistry,
	})
	if err != nil {
		return fmt.Errorf("could not create ledger: %w", err)
	}
	if vault != nil {
		if err := seedVault(vault, l); err != nil {
			return err
		}
	}
	if cfg.DevBootstrap {
		if err := bootstrapTestCampaign(l); err != nil {
			return err
		}
	}

	n.activity = service.NewActivityMonitor(n.bus, cfg.ActivitySize)
	if err := n.activity.Start(ctx); err != nil {
		return fmt.Errorf("could not start activity monitor: %w", err)
	}
	n.funds = service.NewFundsMonitor(wallet, l, cfg.FundsCheckInterval, promRegistry)
	if err := n.funds.Start(ctx); err != nil {
		return fmt.Errorf("could not start funds monitor: %w", err)
	}
	n.api = service.NewAPI(&api.APIConfig{
		Host:            cfg.APIHost,
		Port:            cfg.APIPort,
		Ledger:          l,
		Activity:        n.activity,
		Metrics:         promRegistry,
		SignatureWindow: cfg.SignatureWindow,
	})
	if err := n.api.Start(ctx); err != nil {
		return err
	}
	host, port := n.api.HostPort()
	log.Infow("relief node running", "host", host, "port", port, "operator", l.Operator().Hex())

	<-ctx.Done()
	log.Infow("shutting down relief node")
	return nil
}

// seedVault credits the vault with the funds the stored campaigns still pool,
// so a restarted node keeps paying the claims of a persisted ledger.
func seedVault(vault *ledger.Vault, l *ledger.Ledger) error {
	pooled, err := l.PooledFunds()
	if err != nil {
		return fmt.Errorf("could not read the pooled funds: %w", err)
	}
	if pooled.Sign() == 0 {
		return nil
	}
	vault.Deposit(l.Operator(), pooled)
	log.Warnw("vault seeded with the pooled funds of the stored campaigns", "funds", types.FormatFunds(pooled))
	return nil
}

func openDatabase(cfg *config.Config) (db.Database, error) {
	if cfg.DBType == config.DBTypeMemory {
		log.Warnw("ledger kept in memory, state is lost on exit")
		return memdb.New(), nil
	}
	dir := filepath.Join(cfg.DataDir, "ledger")
	database, err := metadb.New(cfg.DBType, dir)
	if err != nil {
		return nil, fmt.Errorf("could not open database at %s: %w", dir, err)
	}
	return database, nil
}

func newVerifier(ctx context.Context, cfg *config.Config) (aadhaar.Verifier, error) {
	if cfg.VerifierMode == config.VerifierMockAccept {
		log.Warnw("proof verification disabled, every claim proof is accepted")
		return aadhaar.NewMockVerifier(true), nil
	}
	pubKeyHash, err := cfg.IssuerPubKeyHash()
	if err != nil {
		return nil, err
	}
	if cfg.VerificationKey != "" {
		return aadhaar.NewGroth16VerifierFromFile(cfg.VerificationKey, pubKeyHash)
	}
	vkey, err := aadhaar.NewArtifact(cfg.VerificationKeyURL, cfg.VerificationKeyHash)
	if err != nil {
		return nil, err
	}
	return aadhaar.NewGroth16VerifierFromArtifact(ctx, vkey, filepath.Join(cfg.DataDir, "artifacts"), pubKeyHash)
}

func newWeb3Pool(cfg *config.Config) (*rpc.Web3Pool, error) {
	pool := rpc.NewWeb3Pool()
	var errs []error
	for _, uri := range cfg.Web3RPC {
		chainID, err := pool.AddEndpoint(uri)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if cfg.ChainID != 0 && chainID != cfg.ChainID {
			pool.Close()
			return nil, fmt.Errorf("web3 endpoints serve chainID %d, configured %d", chainID, cfg.ChainID)
		}
	}
	if pool.NumberOfEndpoints(false) == 0 {
		return nil, fmt.Errorf("no usable web3 endpoint: %w", errors.Join(errs...))
	}
	for _, err := range errs {
		log.Warnw("skipping web3 endpoint", "error", err.Error())
	}
	return pool, nil
}
