package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build info - injected via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "webhookd",
	Short: "Webhookd ingestion and delivery service",
	Long:  `webhookd accepts webhook events, verifies their signature, and reliably dispatches them to subscriber endpoints with retries and delivery logging.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
