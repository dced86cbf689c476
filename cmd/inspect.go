package cmd

import (
	"fmt"
	"os"

	"github.com/mezonai/cubix/jsonx"
	"github.com/mezonai/cubix/stack"
	"github.com/spf13/cobra"
)

var (
	inspectJSON   bool
	inspectDetail bool
	inspectLog    uint64
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the per-level state of the stack store",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		if err := printReports(e.manager.Inspect()); err != nil {
			return err
		}
		if inspectLog > 0 {
			return printTxLog(e, inspectLog)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print reports as JSON")
	inspectCmd.Flags().BoolVar(&inspectDetail, "detail", false, "list every occupied slot")
	inspectCmd.Flags().Uint64Var(&inspectLog, "log", 0, "also print the last N accepted transactions")
}

func printReports(reports []stack.LevelReport) error {
	if !inspectJSON {
		return stack.WriteReport(os.Stdout, reports, inspectDetail)
	}
	data, err := jsonx.MarshalIndent(reports)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printTxLog(e *engine, last uint64) error {
	txLog := e.store.TxLog()
	count, err := txLog.Count()
	if err != nil {
		return err
	}
	start := uint64(0)
	if count > last {
		start = count - last
	}

	fmt.Printf("Transaction log: %d entries\n", count)
	for seq := start; seq < count; seq++ {
		tx, ok, err := txLog.Get(seq)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		fmt.Printf("  #%d %s %v -> %v (%s)\n", seq, tx.HashWith(e.manager.Hasher()).Short(), tx.From, tx.To, tx.Meta.TxType)
	}
	return nil
}
