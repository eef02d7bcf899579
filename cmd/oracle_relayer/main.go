package main

import (
	"os"

	"github.com/oracle-relayer/oracle-relayer/cmd/oracle_relayer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
