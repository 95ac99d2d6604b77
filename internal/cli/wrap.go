package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Fantasim/solbatch/internal/engine"
	"github.com/Fantasim/solbatch/internal/wallet"
)

var (
	wrapKey     string
	wrapKeyFile string

	wrapCmd = &cobra.Command{
		Use:     "wrap AMOUNT",
		Short:   "Wrap SOL into the wallet's wrapped-SOL token account",
		Args:    cobra.ExactArgs(1),
		Example: `  solbatch wrap 1.5 --key-file wallet.json`,
		RunE:    runWrap,
	}

	unwrapCmd = &cobra.Command{
		Use:     "unwrap",
		Short:   "Close the wallet's wrapped-SOL account, unwrapping its full balance",
		Example: `  solbatch unwrap --key-file wallet.json`,
		RunE:    runUnwrap,
	}
)

func init() {
	wrapCmd.Flags().StringVar(&wrapKey, "key", "", "wallet secret key (base58 or JSON array)")
	wrapCmd.Flags().StringVar(&wrapKeyFile, "key-file", "", "path to wallet key file")
	unwrapCmd.Flags().StringVar(&wrapKey, "key", "", "wallet secret key (base58 or JSON array)")
	unwrapCmd.Flags().StringVar(&wrapKeyFile, "key-file", "", "path to wallet key file")
	rootCmd.AddCommand(wrapCmd)
	rootCmd.AddCommand(unwrapCmd)
}

func runWrap(cmd *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}
	lamports, err := engine.SOLToLamports(amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	signer, err := wallet.Load(wrapKey, wrapKeyFile)
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	signature, err := eng.Wrap(ctx, signer, lamports)
	if err != nil {
		return err
	}

	fmt.Printf("wrapped %s SOL (signature %s)\n", amount.String(), signature)
	return nil
}

func runUnwrap(cmd *cobra.Command, args []string) error {
	signer, err := wallet.Load(wrapKey, wrapKeyFile)
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	signature, err := eng.Unwrap(ctx, signer)
	if err != nil {
		return err
	}

	if signature == "" {
		fmt.Println("no wrapped account to close")
		return nil
	}
	fmt.Printf("unwrapped (signature %s)\n", signature)
	return nil
}
