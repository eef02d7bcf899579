package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	relayerhttp "github.com/oracle-relayer/oracle-relayer/internal/http"
)

var serverURL string

const (
	UrlFlagName = "url"
)

// QueryCmd represents the query command
var QueryCmd = &cobra.Command{
	Use: "query",
}

func init() {
	QueryCmd.PersistentFlags().StringVarP(&serverURL, UrlFlagName, "u", "http://localhost:9999", "server url")
	QueryCmd.AddCommand(FailedTxs)
	rootCmd.AddCommand(QueryCmd)
}

// FailedTxs represents the failed-txs command
var FailedTxs = &cobra.Command{
	Use:   "failed-txs",
	Short: "Query transactions the relayer failed to settle",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := cmd.Flags().GetString(UrlFlagName)
		if err != nil {
			return err
		}

		client, err := relayerhttp.NewOracleClient(url)
		if err != nil {
			return fmt.Errorf("failed to get new oracle client: %w", err)
		}

		txs, err := client.GetFailedTxs()
		if err != nil {
			return fmt.Errorf("failed to get failed txs: %w", err)
		}

		var response bytes.Buffer
		encoder := json.NewEncoder(&response)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(txs); err != nil {
			return fmt.Errorf("failed to encode failed txs: %w", err)
		}

		fmt.Printf("Failed txs:\n%s\n", response.String())

		return nil
	},
}
