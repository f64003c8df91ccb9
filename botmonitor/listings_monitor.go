package botmonitor

// Background monitor: polls the listing program on an interval and fans
// new listings out to every registered user.

import (
	"context"
	"time"

	"go.uber.org/zap"

	log "swarmventures/internal/infra/log"
	"swarmventures/internal/market"
	"swarmventures/internal/notify"
	"swarmventures/internal/store"
)

const monitorStoreTimeout = 10 * time.Second

// RunListingsMonitor blocks until ctx is cancelled.
func RunListingsMonitor(ctx context.Context, poller *market.Poller, users store.UserStore, dispatcher *notify.Dispatcher, interval time.Duration) {
	log.LogInfo("listings monitor started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.LogInfo("listings monitor stopped")
			return
		case <-ticker.C:
			runListingsCycle(ctx, poller, users, dispatcher)
		}
	}
}

func runListingsCycle(ctx context.Context, poller *market.Poller, users store.UserStore, dispatcher *notify.Dispatcher) {
	fresh, err := poller.PollNew(ctx)
	if err != nil {
		log.LogError("listing poll failed", zap.Error(err))
		return
	}
	if len(fresh) == 0 {
		return
	}
	log.LogSuccess("new listings detected", zap.Int("count", len(fresh)))

	storeCtx, cancel := context.WithTimeout(ctx, monitorStoreTimeout)
	accounts, err := users.All(storeCtx, "")
	cancel()
	if err != nil {
		log.LogError("failed to load alert recipients", zap.Error(err))
		return
	}

	recipients := make([]string, 0, len(accounts))
	for _, a := range accounts {
		recipients = append(recipients, a.TelegramID)
	}

	for _, listing := range fresh {
		dispatcher.BroadcastListing(listing, recipients)
	}
}
