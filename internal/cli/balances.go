package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Fantasim/solbatch/internal/engine"
	"github.com/Fantasim/solbatch/internal/records"
)

var balancesCmd = &cobra.Command{
	Use:     "balances FILE",
	Short:   "Query native and token balances for every wallet in a file",
	Args:    cobra.ExactArgs(1),
	Example: `  solbatch balances wallets.csv`,
	RunE:    runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)
}

func runBalances(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	log := registry.For(inputPath)

	wallets, err := records.LoadWalletRecords(inputPath)
	if err != nil {
		return fmt.Errorf("load wallet file: %w", err)
	}

	log.Info("balance query starting", "wallets", len(wallets))

	ctx, cancel := signalContext()
	defer cancel()

	reports := eng.Balances(ctx, wallets)

	header := []string{"address", "mint", "amount", "decimals"}
	var rows [][]string
	for _, r := range reports {
		sol := engine.LamportsToSOL(r.NativeLamports)
		fmt.Printf("%s  SOL %s\n", r.Address, sol.String())
		rows = append(rows, []string{r.Address, "SOL", sol.String(), "9"})

		for _, h := range r.Holdings {
			ui := engine.FromRaw(h.RawAmount, h.Decimals)
			fmt.Printf("%s  %s %s\n", r.Address, h.Mint, ui.String())
			rows = append(rows, []string{r.Address, h.Mint, ui.String(), strconv.Itoa(h.Decimals)})
		}
	}

	if _, err := records.WriteResultCSV(cfg.OutputDir, "balances", header, rows); err != nil {
		log.Error("result file write failed", "error", err)
	}

	log.Info("balance query finished", "wallets", len(reports))
	return nil
}
