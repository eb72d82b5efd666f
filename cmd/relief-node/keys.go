package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/vocdoni/aadhaar-relief/aadhaar"
	"github.com/vocdoni/aadhaar-relief/crypto/ethereum"
)

func keygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ethereum key pair for the operator or the hot wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := ethereum.NewSignKeys()
			if err := keys.Generate(); err != nil {
				return fmt.Errorf("could not generate key: %w", err)
			}
			_, priv := keys.HexString()
			fmt.Fprintf(cmd.OutOrStdout(), "address: %s\nprivate key: %s\n", keys.Address().Hex(), priv)
			return nil
		},
	}
}

func signalHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signal-hash <address>",
		Short: "Print the Anon Aadhaar signal hash that binds a proof to a caller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address: %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), aadhaar.SignalHash(common.HexToAddress(args[0])).String())
			return nil
		},
	}
}
