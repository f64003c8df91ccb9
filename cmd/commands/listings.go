package commands

// One-shot command: fetch the current secondary-market listings,
// decode them and print the book to stdout.

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swarmventures/botmonitor"
	"swarmventures/internal/clients_api/solana"
	"swarmventures/internal/infra/config"
	logging "swarmventures/internal/infra/log"
	"swarmventures/internal/market"
)

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Fetch and print the current secondary-market listing book",
	RunE:  runListings,
}

func runListings(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.LogError("Failed to load config", zap.Error(err))
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rpc := solana.NewClient(cfg.Solana.RPCURL,
		solana.WithTimeout(time.Duration(cfg.Solana.RequestTimeout)*time.Second),
		solana.WithMaxRetries(cfg.Solana.MaxRetries))

	source := botmonitor.NewProgramSource(rpc, cfg.Solana.ProgramID)
	accounts, err := source.FetchListingAccounts(ctx)
	if err != nil {
		logging.LogError("Failed to fetch listing accounts", zap.Error(err))
		return fmt.Errorf("failed to fetch listing accounts: %w", err)
	}

	listings := market.DecodeBatch(accounts)
	logging.LogSuccess("Fetched listing book",
		zap.Int("accounts", len(accounts)), zap.Int("decoded", len(listings)))

	if len(listings) == 0 {
		fmt.Println("No listings on the secondary market.")
		return nil
	}
	for _, l := range listings {
		fmt.Printf("%-16s pool=%s shares=%d price=%d total=%d seller=%s\n",
			l.ListingID, l.PoolAddress(), l.NumberOfShares, l.PricePerShare,
			l.TotalPrice(), l.SellerAddress())
	}
	return nil
}
