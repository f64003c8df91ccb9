package botmonitor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"swarmventures/internal/market"
	"swarmventures/internal/store"
	"swarmventures/internal/watchlist"
)

func TestFormatAddResultFreeSlots(t *testing.T) {
	res := watchlist.AddResult{
		Outcome:         watchlist.Added,
		Account:         &store.UserAccount{Status: store.StatusFree},
		SwarmsRemaining: 1,
	}
	msg := formatAddResult(res, "kinos", 3.0)
	assert.Contains(t, msg, "Added KINOS")
	assert.Contains(t, msg, "Free slots remaining: 1")
}

func TestFormatAddResultFinalSlot(t *testing.T) {
	res := watchlist.AddResult{
		Outcome:          watchlist.Added,
		Account:          &store.UserAccount{Status: store.StatusFree},
		SwarmsRemaining:  0,
		FinalSlotWarning: true,
	}
	msg := formatAddResult(res, "xforge", 3.0)
	assert.Contains(t, msg, "Added XFORGE")
	assert.Contains(t, msg, "last free slot")
	assert.NotContains(t, msg, "Free slots remaining")
}

func TestFormatAddResultPremiumNoSlotTalk(t *testing.T) {
	res := watchlist.AddResult{
		Outcome: watchlist.Added,
		Account: &store.UserAccount{Status: store.StatusPremium},
	}
	msg := formatAddResult(res, "kinos", 3.0)
	assert.Contains(t, msg, "Added KINOS")
	assert.NotContains(t, msg, "slot")
}

func TestFormatAddResultLimitReached(t *testing.T) {
	res := watchlist.AddResult{
		Outcome: watchlist.LimitReached,
		Reason:  watchlist.ReasonFreeTrialLimit,
	}
	msg := formatAddResult(res, "kinos", 3.0)
	assert.Contains(t, msg, "Free trial limit reached")
	assert.Contains(t, msg, "3 SOL")
}

func TestFormatAddResultAlreadyPresent(t *testing.T) {
	res := watchlist.AddResult{Outcome: watchlist.AlreadyPresent}
	msg := formatAddResult(res, "kinos", 3.0)
	assert.Contains(t, msg, "KINOS is already on your watchlist")
}

func TestFormatWatchlist(t *testing.T) {
	empty := formatWatchlist(nil)
	assert.Contains(t, empty, "watchlist is empty")

	entries := []store.WatchlistEntry{
		store.NewWatchlistEntry("kinos", "usdc"),
		store.NewWatchlistEntry("xforge", "ubc"),
	}
	msg := formatWatchlist(entries)
	assert.Contains(t, msg, "• KINOS (USDC)")
	assert.Contains(t, msg, "• XFORGE (UBC)")
}

func TestFormatListingsBookTruncates(t *testing.T) {
	assert.Contains(t, formatListingsBook(nil), "No listings")

	listings := make([]market.Listing, 12)
	for i := range listings {
		listings[i] = market.Listing{
			ListingID:      fmt.Sprintf("L%02d", i),
			NumberOfShares: 10,
			PricePerShare:  5,
		}
	}
	msg := formatListingsBook(listings)
	assert.Contains(t, msg, "Secondary Market Listings (12)")
	assert.Contains(t, msg, "L09")
	assert.NotContains(t, msg, "L10")
	assert.Contains(t, msg, "and 2 more")
	assert.Equal(t, maxListingsShown, strings.Count(msg, "•"))
}

func TestCronSpec(t *testing.T) {
	spec, err := cronSpec("10:00")
	assert.NoError(t, err)
	assert.Equal(t, "0 10 * * *", spec)

	spec, err = cronSpec("23:59")
	assert.NoError(t, err)
	assert.Equal(t, "59 23 * * *", spec)

	for _, bad := range []string{"", "10", "24:00", "10:60", "aa:bb"} {
		_, err := cronSpec(bad)
		assert.Error(t, err, bad)
	}
}
