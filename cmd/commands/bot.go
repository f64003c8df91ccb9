package commands

// Command to run the full bot
// Initializes configuration, the user store backend and the Solana RPC client
// Starts the command handler, the listings monitor and the daily digest
// Implements graceful shutdown for proper termination

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swarmventures/botmonitor"
	"swarmventures/internal/clients_api/airtable"
	"swarmventures/internal/clients_api/anthropic"
	"swarmventures/internal/clients_api/solana"
	"swarmventures/internal/infra/config"
	logging "swarmventures/internal/infra/log"
	"swarmventures/internal/infra/ratelimit"
	"swarmventures/internal/market"
	"swarmventures/internal/notify"
	"swarmventures/internal/payments"
	"swarmventures/internal/store"
	"swarmventures/internal/store/sqlitestore"
	"swarmventures/internal/watchlist"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the full bot (commands + listing alerts + daily digest)",
	Long:  `Run the complete bot: Telegram command handling, secondary-market listing monitoring with alerts, and the daily watchlist digest.`,
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.LogError("Failed to load config", zap.Error(err))
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logging.LogError("Failed to initialize bot", zap.Error(err))
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	logging.LogSuccess("Bot authorized", zap.String("username", bot.Self.UserName))

	users, err := buildUserStore(cfg)
	if err != nil {
		return err
	}

	rpc := solana.NewClient(cfg.Solana.RPCURL,
		solana.WithTimeout(time.Duration(cfg.Solana.RequestTimeout)*time.Second),
		solana.WithMaxRetries(cfg.Solana.MaxRetries))

	source := botmonitor.NewProgramSource(rpc, cfg.Solana.ProgramID)
	poller, err := market.NewPoller(source, cfg.App.DataDir)
	if err != nil {
		logging.LogError("Failed to initialize listing poller", zap.Error(err))
		return fmt.Errorf("failed to initialize listing poller: %w", err)
	}

	manager := watchlist.NewManager(users)
	verifier := payments.NewVerifier(rpc, cfg.Solana.PaymentWallet, cfg.Solana.PremiumPriceSOL)
	limiter := ratelimit.NewKeyedLimiter(cfg.App.ChatRateLimit, cfg.App.ChatRateLimit)
	dispatcher := notify.NewDispatcher(bot)

	var llm *anthropic.Client
	if cfg.Anthropic.APIKey != "" {
		llm = anthropic.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
	} else {
		logging.LogWarn("ANTHROPIC_API_KEY not provided, free-text commands disabled")
	}

	handler := botmonitor.NewHandler(bot, manager, verifier, llm, limiter, poller,
		cfg.Solana.PaymentWallet, cfg.Solana.PremiumPriceSOL)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		botmonitor.RunListingsMonitor(ctx, poller, users, dispatcher,
			time.Duration(cfg.App.PollInterval)*time.Second)
	}()

	digest := botmonitor.NewDigest(bot, users, poller)
	stopDigest, err := digest.Start(ctx, cfg.Telegram.DigestTime)
	if err != nil {
		logging.LogError("Failed to schedule daily digest", zap.Error(err))
		return fmt.Errorf("failed to schedule daily digest: %w", err)
	}

	logging.LogSuccess("Bot is running", zap.String("status", "active"),
		zap.String("store", cfg.Store.Backend))

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, gracefully stopping...")

	stopDigest()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.LogSuccess("All workers stopped gracefully")
	case <-time.After(10 * time.Second):
		logging.LogWarn("Timeout waiting for workers to stop, forcing shutdown")
	}

	return nil
}

func buildUserStore(cfg *config.Config) (store.UserStore, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := sqlitestore.Open(cfg.Store.SQLitePath)
		if err != nil {
			logging.LogError("Failed to open sqlite store", zap.Error(err))
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logging.LogInfo("Using sqlite user store", zap.String("path", cfg.Store.SQLitePath))
		return s, nil
	case "airtable":
		if cfg.Airtable.APIKey == "" || cfg.Airtable.BaseID == "" {
			return nil, fmt.Errorf("airtable store requires AIRTABLE_API_KEY and AIRTABLE_BASE_ID")
		}
		logging.LogInfo("Using airtable user store", zap.String("table", cfg.Airtable.UsersTable))
		return airtable.NewClient(cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.UsersTable), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
