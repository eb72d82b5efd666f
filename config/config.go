// Package config loads the relief node configuration: defaults, overlaid by
// an optional YAML file, overlaid by RELIEF_* environment variables.
package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/types"
	"go.vocdoni.io/dvote/db"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment variables.
const EnvPrefix = "relief"

const (
	// DBTypeMemory keeps the ledger in memory, for development.
	DBTypeMemory = "memory"

	VerifierGroth16    = "groth16"
	VerifierMockAccept = "mock-accept"

	TransferVault = "vault"
	TransferWeb3  = "web3"
)

// Config holds every setting of the relief node.
type Config struct {
	LogLevel  string `yaml:"logLevel"  split_words:"true"`
	LogOutput string `yaml:"logOutput" split_words:"true"`
	DataDir   string `yaml:"dataDir"   split_words:"true"`
	DBType    string `yaml:"dbType"    envconfig:"DB_TYPE"`

	APIHost         string        `yaml:"apiHost"         envconfig:"API_HOST"`
	APIPort         int           `yaml:"apiPort"         envconfig:"API_PORT"`
	SignatureWindow time.Duration `yaml:"signatureWindow" split_words:"true"`

	// Operator is the address allowed to manage campaigns.
	Operator string `yaml:"operator"`
	// ClaimAmount is the relief amount per claim, in ether.
	ClaimAmount string        `yaml:"claimAmount" split_words:"true"`
	MaxProofAge time.Duration `yaml:"maxProofAge" split_words:"true"`
	ClockSkew   time.Duration `yaml:"clockSkew"   split_words:"true"`

	VerifierMode string `yaml:"verifierMode" split_words:"true"`
	// VerificationKey is a local snarkjs verification key. If empty the key
	// is fetched from VerificationKeyURL and checked against
	// VerificationKeyHash.
	VerificationKey     string `yaml:"verificationKey"     split_words:"true"`
	VerificationKeyURL  string `yaml:"verificationKeyURL"  envconfig:"VERIFICATION_KEY_URL"`
	VerificationKeyHash string `yaml:"verificationKeyHash" split_words:"true"`
	// PubKeyHash is the hash of the Aadhaar issuer public key, decimal or
	// 0x prefixed hex.
	PubKeyHash string `yaml:"pubKeyHash" split_words:"true"`

	TransferMode string   `yaml:"transferMode"       split_words:"true"`
	Web3RPC      []string `yaml:"web3RPC"            envconfig:"WEB3_RPC"`
	HotWalletKey string   `yaml:"hotWalletKey"       split_words:"true"`
	// ChainID, if not zero, must match the chain served by Web3RPC.
	ChainID            uint64        `yaml:"chainID"            envconfig:"CHAIN_ID"`
	FundsCheckInterval time.Duration `yaml:"fundsCheckInterval" split_words:"true"`

	ActivitySize int `yaml:"activitySize" split_words:"true"`
	// DevBootstrap registers a test campaign on an empty ledger.
	DevBootstrap bool `yaml:"devBootstrap" split_words:"true"`
}

// Default returns the default configuration.
func Default() *Config {
	dataDir := filepath.Join(os.TempDir(), "aadhaar-relief")
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dataDir = filepath.Join(home, ".aadhaar-relief")
	}
	return &Config{
		LogLevel:           log.LogLevelInfo,
		LogOutput:          "stdout",
		DataDir:            dataDir,
		DBType:             db.TypePebble,
		APIHost:            "0.0.0.0",
		APIPort:            9090,
		SignatureWindow:    5 * time.Minute,
		ClaimAmount:        "0.001",
		MaxProofAge:        3 * time.Hour,
		ClockSkew:          5 * time.Minute,
		VerifierMode:       VerifierGroth16,
		TransferMode:       TransferVault,
		FundsCheckInterval: time.Minute,
		ActivitySize:       256,
	}
}

// Load returns the default configuration overlaid with the YAML file, if
// configFile is not empty, and with the environment. The result is
// validated.
func Load(configFile string) (*Config, error) {
	cfg := Default()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is consistent.
func (c *Config) Validate() error {
	if !slices.Contains([]string{
		log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn,
		log.LogLevelError, log.LogLevelFatal, log.LogLevelNone,
	}, c.LogLevel) {
		return fmt.Errorf("invalid logLevel: %q", c.LogLevel)
	}
	if c.DBType != db.TypePebble && c.DBType != DBTypeMemory {
		return fmt.Errorf("invalid dbType: %q (must be %q or %q)", c.DBType, db.TypePebble, DBTypeMemory)
	}
	if c.DBType == db.TypePebble && c.DataDir == "" {
		return fmt.Errorf("dataDir is required by the %s database", db.TypePebble)
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid apiPort: %d", c.APIPort)
	}
	if _, err := c.OperatorAddress(); err != nil {
		return err
	}
	if _, err := c.ClaimAmountWei(); err != nil {
		return err
	}
	if c.MaxProofAge <= 0 {
		return fmt.Errorf("maxProofAge must be positive")
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("clockSkew can not be negative")
	}
	switch c.VerifierMode {
	case VerifierGroth16:
		if c.VerificationKey == "" && (c.VerificationKeyURL == "" || c.VerificationKeyHash == "") {
			return fmt.Errorf("the %s verifier needs verificationKey or verificationKeyURL and verificationKeyHash",
				VerifierGroth16)
		}
		if _, err := c.IssuerPubKeyHash(); err != nil {
			return err
		}
	case VerifierMockAccept:
	default:
		return fmt.Errorf("invalid verifierMode: %q (must be %q or %q)", c.VerifierMode, VerifierGroth16, VerifierMockAccept)
	}
	switch c.TransferMode {
	case TransferVault:
	case TransferWeb3:
		if len(c.Web3RPC) == 0 {
			return fmt.Errorf("the %s transfer mode needs at least one web3RPC endpoint", TransferWeb3)
		}
		if c.HotWalletKey == "" {
			return fmt.Errorf("the %s transfer mode needs hotWalletKey", TransferWeb3)
		}
	default:
		return fmt.Errorf("invalid transferMode: %q (must be %q or %q)", c.TransferMode, TransferVault, TransferWeb3)
	}
	return nil
}

// OperatorAddress parses the operator address. An empty operator is
// accepted, the ledger then uses the stored one.
func (c *Config) OperatorAddress() (common.Address, error) {
	if c.Operator == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(c.Operator) {
		return common.Address{}, fmt.Errorf("invalid operator address: %q", c.Operator)
	}
	return common.HexToAddress(c.Operator), nil
}

// ClaimAmountWei parses the claim amount.
func (c *Config) ClaimAmountWei() (*big.Int, error) {
	wei, err := types.ParseEther(c.ClaimAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid claimAmount: %w", err)
	}
	if wei.Sign() <= 0 {
		return nil, fmt.Errorf("claimAmount must be positive")
	}
	return wei, nil
}

// IssuerPubKeyHash parses the issuer public key hash.
func (c *Config) IssuerPubKeyHash() (*big.Int, error) {
	h := new(types.BigInt)
	if c.PubKeyHash == "" {
		return nil, fmt.Errorf("pubKeyHash is required")
	}
	if err := h.UnmarshalText([]byte(c.PubKeyHash)); err != nil {
		return nil, fmt.Errorf("invalid pubKeyHash: %w", err)
	}
	return h.MathBigInt(), nil
}
