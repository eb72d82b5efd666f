package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "relief.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultNeedsVerifierSetup(t *testing.T) {
	c := qt.New(t)
	cfg := Default()
	c.Assert(cfg.APIPort, qt.Equals, 9090)
	c.Assert(cfg.MaxProofAge, qt.Equals, 3*time.Hour)
	// the default groth16 verifier has no key nor issuer configured
	c.Assert(cfg.Validate(), qt.ErrorMatches, "the groth16 verifier needs.*")

	cfg.VerifierMode = VerifierMockAccept
	c.Assert(cfg.Validate(), qt.IsNil)
}

func TestLoadFileAndEnv(t *testing.T) {
	c := qt.New(t)
	path := writeConfig(t, `
logLevel: debug
dbType: memory
apiPort: 8080
operator: "0x1000000000000000000000000000000000000001"
claimAmount: "0.005"
maxProofAge: 1h
verifierMode: groth16
verificationKey: /tmp/vkey.json
pubKeyHash: "0x1234"
web3RPC:
  - http://localhost:8545
`)
	t.Setenv("RELIEF_API_PORT", "7070")
	t.Setenv("RELIEF_CLOCK_SKEW", "30s")

	cfg, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.LogLevel, qt.Equals, "debug")
	c.Assert(cfg.DBType, qt.Equals, DBTypeMemory)
	c.Assert(cfg.APIPort, qt.Equals, 7070)
	c.Assert(cfg.ClockSkew, qt.Equals, 30*time.Second)
	c.Assert(cfg.MaxProofAge, qt.Equals, time.Hour)
	c.Assert(cfg.Web3RPC, qt.DeepEquals, []string{"http://localhost:8545"})
	// defaults survive the overlay
	c.Assert(cfg.TransferMode, qt.Equals, TransferVault)
	c.Assert(cfg.ActivitySize, qt.Equals, 256)

	op, err := cfg.OperatorAddress()
	c.Assert(err, qt.IsNil)
	c.Assert(op, qt.Equals, common.HexToAddress("0x1000000000000000000000000000000000000001"))

	amount, err := cfg.ClaimAmountWei()
	c.Assert(err, qt.IsNil)
	c.Assert(amount.String(), qt.Equals, "5000000000000000")

	pkh, err := cfg.IssuerPubKeyHash()
	c.Assert(err, qt.IsNil)
	c.Assert(pkh.Int64(), qt.Equals, int64(0x1234))
}

func TestLoadErrors(t *testing.T) {
	c := qt.New(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	c.Assert(err, qt.ErrorMatches, "error reading config file.*")

	_, err = Load(writeConfig(t, "apiPort: [1"))
	c.Assert(err, qt.ErrorMatches, "error parsing config file.*")

	t.Setenv("RELIEF_API_PORT", "not-a-number")
	_, err = Load("")
	c.Assert(err, qt.ErrorMatches, "error processing environment.*")
}

func TestValidate(t *testing.T) {
	c := qt.New(t)
	valid := func() *Config {
		cfg := Default()
		cfg.VerifierMode = VerifierMockAccept
		return cfg
	}
	for _, tc := range []struct {
		name   string
		modify func(*Config)
		err    string
	}{
		{"log level", func(cfg *Config) { cfg.LogLevel = "verbose" }, "invalid logLevel.*"},
		{"db type", func(cfg *Config) { cfg.DBType = "mysql" }, "invalid dbType.*"},
		{"data dir", func(cfg *Config) { cfg.DataDir = "" }, "dataDir is required.*"},
		{"api port", func(cfg *Config) { cfg.APIPort = 70000 }, "invalid apiPort.*"},
		{"operator", func(cfg *Config) { cfg.Operator = "0xabc" }, "invalid operator address.*"},
		{"claim amount", func(cfg *Config) { cfg.ClaimAmount = "lots" }, "invalid claimAmount.*"},
		{"zero claim amount", func(cfg *Config) { cfg.ClaimAmount = "0" }, "claimAmount must be positive"},
		{"proof age", func(cfg *Config) { cfg.MaxProofAge = 0 }, "maxProofAge must be positive"},
		{"verifier mode", func(cfg *Config) { cfg.VerifierMode = "trust-me" }, "invalid verifierMode.*"},
		{"pub key hash", func(cfg *Config) {
			cfg.VerifierMode = VerifierGroth16
			cfg.VerificationKey = "vkey.json"
		}, "pubKeyHash is required"},
		{"transfer mode", func(cfg *Config) { cfg.TransferMode = "cash" }, "invalid transferMode.*"},
		{"web3 rpc", func(cfg *Config) { cfg.TransferMode = TransferWeb3 }, ".*at least one web3RPC.*"},
		{"hot wallet", func(cfg *Config) {
			cfg.TransferMode = TransferWeb3
			cfg.Web3RPC = []string{"http://localhost:8545"}
		}, ".*needs hotWalletKey"},
	} {
		c.Run(tc.name, func(c *qt.C) {
			cfg := valid()
			tc.modify(cfg)
			c.Assert(cfg.Validate(), qt.ErrorMatches, tc.err)
		})
	}
	c.Assert(valid().Validate(), qt.IsNil)
}
