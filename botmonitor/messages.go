package botmonitor

// Reply texts and formatting helpers for the Telegram surface.

import (
	"fmt"
	"strings"

	"swarmventures/internal/market"
	"swarmventures/internal/notify"
	"swarmventures/internal/store"
	"swarmventures/internal/watchlist"
)

const welcomeMessage = "🚀 Welcome to SwarmVentures Trading Bot!\n\n" +
	"I'll help you track AI swarm share listings and manage your positions.\n\n" +
	"Available commands:\n" +
	"/start - Show this welcome message\n" +
	"/help - Show available commands\n" +
	"/watchlist - View your swarm watchlist\n" +
	"/add <swarm_id> [token] - Add swarm to watchlist\n" +
	"/remove <swarm_id> [token] - Remove swarm from watchlist\n" +
	"/listings - Show current secondary-market listings\n" +
	"/subscribe - Get premium access\n\n" +
	"Your first 2 swarms are free; premium unlocks unlimited tracking."

const helpMessage = "📚 Available Commands:\n\n" +
	"/start - Initialize your account\n" +
	"/help - Show this help message\n" +
	"/add <swarm_id> [token] - Add swarm to watchlist\n" +
	"  Example: /add kinos USDC\n" +
	"/remove <swarm_id> [token] - Remove swarm from watchlist\n" +
	"/watchlist - View your tracked swarms\n" +
	"/listings - Show current secondary-market listings\n" +
	"/subscribe - Get premium access\n" +
	"/verify <signature> - Confirm your premium payment\n\n" +
	"You'll receive alerts when new share listings appear for tracked swarms."

const subscribeMessage = "⭐️ Premium Access\n\n" +
	"• Unlimited swarm tracking\n" +
	"• Real-time listing alerts\n" +
	"• Priority support\n\n" +
	"One-time payment: %g SOL\n" +
	"Send to: %s\n\n" +
	"After the transfer confirms, run /verify <transaction_signature>."

const premiumActivatedMessage = "🎉 Premium Access Activated!\n\n" +
	"Your account has been upgraded to lifetime premium access.\n" +
	"Use /add to track as many swarms as you like."

const limitReachedMessage = "⭐️ Free trial limit reached\n\n" +
	"You've used both free swarm slots. Premium unlocks unlimited tracking " +
	"for a one-time payment of %g SOL. Use /subscribe to get started."

const storeDownMessage = "Something went wrong on our side, please try again in a moment."

func formatAddResult(res watchlist.AddResult, swarmID string, premiumPriceSOL float64) string {
	name := strings.ToUpper(swarmID)
	switch res.Outcome {
	case watchlist.AlreadyPresent:
		return fmt.Sprintf("%s is already on your watchlist.", name)
	case watchlist.LimitReached:
		return fmt.Sprintf(limitReachedMessage, premiumPriceSOL)
	}

	msg := fmt.Sprintf("✅ Added %s to your watchlist!", name)
	if res.Account.Status == store.StatusFree {
		if res.FinalSlotWarning {
			msg += "\n\n⚠️ That was your last free slot. Use /subscribe for unlimited tracking."
		} else {
			msg += fmt.Sprintf("\n\nFree slots remaining: %d", res.SwarmsRemaining)
		}
	}
	return msg
}

func formatWatchlist(entries []store.WatchlistEntry) string {
	if len(entries) == 0 {
		return "Your watchlist is empty. Add swarms with /add <swarm_id>"
	}
	var b strings.Builder
	b.WriteString("🔍 Your Swarm Watchlist:\n\n")
	for _, e := range entries {
		if e.Token != "" {
			fmt.Fprintf(&b, "• %s (%s)\n", strings.ToUpper(e.Swarm), e.Token)
		} else {
			fmt.Fprintf(&b, "• %s\n", strings.ToUpper(e.Swarm))
		}
	}
	b.WriteString("\nYou'll receive alerts when new listings appear.")
	return b.String()
}

const maxListingsShown = 10

func formatListingsBook(listings []market.Listing) string {
	if len(listings) == 0 {
		return "No listings on the secondary market right now."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Secondary Market Listings (%d):\n\n", len(listings))
	for i, l := range listings {
		if i == maxListingsShown {
			fmt.Fprintf(&b, "… and %d more.\n", len(listings)-maxListingsShown)
			break
		}
		fmt.Fprintf(&b, "• %s: %d shares @ %d %s (total %d)\n",
			l.ListingID, l.NumberOfShares, l.PricePerShare, notify.TokenLabel, l.TotalPrice())
	}
	return b.String()
}
