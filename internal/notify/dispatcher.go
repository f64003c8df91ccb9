package notify

// Listing alert fan-out. One outbound message per recipient; a failed
// send is logged and skipped, never fatal for the batch.

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	log "swarmventures/internal/infra/log"
	"swarmventures/internal/market"
)

// TokenLabel is the settlement token listings are denominated in.
const TokenLabel = "$COMPUTE"

const listingBaseURL = "https://swarms.universalbasiccompute.ai/invest/"

// MessageSender is the slice of the Telegram bot API the dispatcher uses.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Dispatcher struct {
	sender MessageSender
}

func NewDispatcher(sender MessageSender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// FormatListing renders the alert text for one decoded listing.
func FormatListing(l market.Listing) string {
	var b strings.Builder
	b.WriteString("🔔 New Listing Alert!\n\n")
	fmt.Fprintf(&b, "Swarm: %s\n", l.PoolAddress())
	fmt.Fprintf(&b, "Shares: %d\n", l.NumberOfShares)
	fmt.Fprintf(&b, "Price/Share: %d %s\n", l.PricePerShare, TokenLabel)
	fmt.Fprintf(&b, "Total Price: %d %s\n", l.TotalPrice(), TokenLabel)
	fmt.Fprintf(&b, "Seller: %s\n\n", l.SellerAddress())
	fmt.Fprintf(&b, "Listing ID: %s\n\n", l.ListingID)
	fmt.Fprintf(&b, "🔗 View Listing: %s%s", listingBaseURL, l.PoolAddress())
	return b.String()
}

// BroadcastListing sends the listing alert to every recipient and returns
// the number of attempted sends.
func (d *Dispatcher) BroadcastListing(listing market.Listing, recipients []string) int {
	text := FormatListing(listing)
	attempted := 0

	for _, telegramID := range recipients {
		chatID, err := strconv.ParseInt(telegramID, 10, 64)
		if err != nil {
			log.LogWarn("skipping recipient with non-numeric telegram id",
				zap.String("telegramID", telegramID))
			continue
		}
		attempted++

		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := d.sender.Send(msg); err != nil {
			log.LogError("failed to send listing alert",
				zap.String("telegramID", telegramID),
				zap.String("listingID", listing.ListingID),
				zap.Error(err))
		}
	}

	log.LogInfo("listing alert broadcast",
		zap.String("listingID", listing.ListingID),
		zap.Int("attempted", attempted))
	return attempted
}
