package cmd

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	relayerhttp "github.com/oracle-relayer/oracle-relayer/internal/http"
)

// ExecCmd represents the exec command
var ExecCmd = &cobra.Command{
	Use: "exec",
}

func init() {
	ExecCmd.PersistentFlags().StringVarP(&serverURL, UrlFlagName, "u", "http://localhost:9999", "server url")
	ExecCmd.AddCommand(retryFailedTx)
	rootCmd.AddCommand(ExecCmd)
}

// retryFailedTx represents the retry-tx command
var retryFailedTx = &cobra.Command{
	Use:   "retry-tx <txID> [txID...]",
	Args:  cobra.MinimumNArgs(1),
	Short: "Re-enqueue transactions the relayer failed to settle",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := cmd.Flags().GetString(UrlFlagName)
		if err != nil {
			return err
		}

		for _, txID := range args {
			if _, ok := new(big.Int).SetString(txID, 10); !ok {
				return fmt.Errorf("invalid txID %q", txID)
			}
		}

		client, err := relayerhttp.NewOracleClient(url)
		if err != nil {
			return fmt.Errorf("failed to get new oracle client: %w", err)
		}

		res, err := client.RetryTxs(args)
		if err != nil {
			return fmt.Errorf("failed to retry failed txs: %w", err)
		}

		for _, txID := range res.Retried {
			fmt.Printf("Tx %s re-enqueued successfully\n", txID)
		}
		for txID, reason := range res.Errors {
			fmt.Printf("Tx %s was not re-enqueued: %s\n", txID, reason)
		}
		if len(res.Errors) > 0 {
			return fmt.Errorf("%d of %d txs were not re-enqueued", len(res.Errors), len(args))
		}

		return nil
	},
}
