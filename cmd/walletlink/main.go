// walletlink drives a Phantom wallet through deep links to sign in and tip artists.
// Usage: go run ./cmd/walletlink serve
package main

import (
	"fmt"
	"os"

	"github.com/AlexZinkM/walletlink/internal/config"
	"github.com/AlexZinkM/walletlink/internal/logging"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logger *log.Logger

var rootCmd = &cobra.Command{
	Use:   "walletlink",
	Short: "Phantom wallet deep-link bridge for Nadia Radio",
	Long: `walletlink connects a Phantom wallet through its deep-link protocol,
signs the listener in and sends tips to the artist on air.

Configuration comes from the environment, or a .env file in the working directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return err
		}
		cfg := config.Get()
		logger = logging.New(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, feesCmd, listenCmd, receiptsCmd, sessionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
