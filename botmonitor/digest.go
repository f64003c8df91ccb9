package botmonitor

// Daily digest: a scheduled summary of each user's watchlist and the
// current secondary-market book.

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	log "swarmventures/internal/infra/log"
	"swarmventures/internal/market"
	"swarmventures/internal/notify"
	"swarmventures/internal/store"
)

type Digest struct {
	sender notify.MessageSender
	users  store.UserStore
	poller *market.Poller
	cron   *cron.Cron
}

func NewDigest(sender notify.MessageSender, users store.UserStore, poller *market.Poller) *Digest {
	return &Digest{
		sender: sender,
		users:  users,
		poller: poller,
		cron:   cron.New(),
	}
}

// Start schedules the digest at the given local time ("HH:MM"). The returned
// stop function drains the scheduler.
func (d *Digest) Start(ctx context.Context, at string) (func(), error) {
	spec, err := cronSpec(at)
	if err != nil {
		return nil, err
	}
	if _, err := d.cron.AddFunc(spec, func() { d.run(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule digest: %w", err)
	}
	d.cron.Start()
	log.LogInfo("daily digest scheduled", zap.String("at", at))

	return func() { <-d.cron.Stop().Done() }, nil
}

// cronSpec converts "HH:MM" into a standard five-field cron expression.
func cronSpec(at string) (string, error) {
	parts := strings.SplitN(at, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid digest time %q, want HH:MM", at)
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid digest time %q, want HH:MM", at)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

func (d *Digest) run(ctx context.Context) {
	storeCtx, cancel := context.WithTimeout(ctx, monitorStoreTimeout)
	defer cancel()

	accounts, err := d.users.All(storeCtx, "")
	if err != nil {
		log.LogError("digest: failed to load users", zap.Error(err))
		return
	}

	book, err := d.poller.CurrentBook(ctx)
	if err != nil {
		log.LogWarn("digest: market book unavailable", zap.Error(err))
	}

	sent := 0
	for _, account := range accounts {
		if len(account.Watchlist) == 0 {
			continue
		}
		chatID, err := strconv.ParseInt(account.TelegramID, 10, 64)
		if err != nil {
			continue
		}
		text := formatDigest(account, book)
		if _, err := d.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			log.LogError("digest: send failed",
				zap.String("telegramID", account.TelegramID), zap.Error(err))
			continue
		}
		sent++
	}
	log.LogSuccess("daily digest sent", zap.Int("recipients", sent))
}

func formatDigest(account *store.UserAccount, book []market.Listing) string {
	var b strings.Builder
	b.WriteString("🗞 Daily Swarm Digest\n\n")
	b.WriteString(formatWatchlist(account.Watchlist))
	if len(book) > 0 {
		b.WriteString("\n\n")
		b.WriteString(formatListingsBook(book))
	}
	b.WriteString(fmt.Sprintf("\n\nGenerated %s", time.Now().Format("2006-01-02 15:04 MST")))
	return b.String()
}
