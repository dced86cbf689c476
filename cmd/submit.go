package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mezonai/cubix/common"
	"github.com/mezonai/cubix/logx"
	"github.com/mezonai/cubix/types"
	"github.com/spf13/cobra"
)

type SubmitConfig struct {
	From      string
	To        string
	TxType    string
	Signature string
	Timestamp uint64
}

var submitConfig SubmitConfig

var submitCmd = &cobra.Command{
	Use:   "submit [flags]",
	Short: "Submit a transaction to the local stack engine",
	Long: `This command appends one transaction to the stack store in the data directory and
runs the promotion cascade before returning.

Examples:
  # Submit a transfer
  submit -f alice -t bob -y transfer

  # Several senders, base58 signature, fixed timestamp
  submit -f alice,carol -t bob -y asset -s 3mJr7AoUXx2Wqd --timestamp 1700000000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitTransaction(cmd.Context(), submitConfig)
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVarP(&submitConfig.From, "from", "f", "", "sender, comma separated for several")
	submitCmd.Flags().StringVarP(&submitConfig.To, "to", "t", "", "recipient, comma separated for several")
	submitCmd.Flags().StringVarP(&submitConfig.TxType, "tx-type", "y", types.TxTypeTransfer, "transaction type")
	submitCmd.Flags().StringVarP(&submitConfig.Signature, "signature", "s", "", "base58 signature")
	submitCmd.Flags().Uint64Var(&submitConfig.Timestamp, "timestamp", 0, "unix seconds, defaults to now")
	_ = submitCmd.MarkFlagRequired("from")
	_ = submitCmd.MarkFlagRequired("to")
}

func buildTransaction(cfg SubmitConfig) (types.Transaction, error) {
	from := splitList(cfg.From)
	to := splitList(cfg.To)
	if len(from) == 0 || len(to) == 0 {
		return types.Transaction{}, fmt.Errorf("from and to are required")
	}
	sig, err := common.DecodeSignature(cfg.Signature)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("invalid signature: %w", err)
	}
	ts := cfg.Timestamp
	if ts == 0 {
		ts = uint64(time.Now().Unix())
	}
	tx := types.Transaction{
		From:      from,
		To:        to,
		Meta:      types.TransactionMeta{TxType: cfg.TxType, Signature: sig},
		Timestamp: ts,
	}
	if err := tx.Validate(); err != nil {
		return types.Transaction{}, err
	}
	return tx, nil
}

func submitTransaction(ctx context.Context, cfg SubmitConfig) error {
	tx, err := buildTransaction(cfg)
	if err != nil {
		return err
	}

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.manager.AddTransaction(ctx, tx); err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	txHash := tx.HashWith(e.manager.Hasher())
	logx.Info("SUBMIT", "Transaction submitted", txHash)
	fmt.Printf("Transaction submitted successfully: %s\n", txHash)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
