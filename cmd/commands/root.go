package commands

// Root command for Cobra CLI
// Defines the main command structure of the application
// Registers all subcommands (bot, listings)

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swarmventures",
	Short: "SwarmVentures Trading Bot - Telegram bot for tracking AI swarm share listings",
	Long: `SwarmVentures Trading Bot is a Go-based Telegram bot that watches the on-chain
secondary market for AI swarm share listings, manages per-user watchlists with a
free trial tier, and sends real-time listing alerts.`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(listingsCmd)
}
