package botmonitor

// Telegram command handling: watchlist commands, premium subscription,
// and the free-text path through the LLM intent client.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"swarmventures/internal/clients_api/anthropic"
	log "swarmventures/internal/infra/log"
	"swarmventures/internal/infra/ratelimit"
	"swarmventures/internal/market"
	"swarmventures/internal/payments"
	"swarmventures/internal/store"
	"swarmventures/internal/watchlist"
)

// defaultToken is assumed when the user does not name a settlement token.
const defaultToken = "USDC"

// storeTimeout bounds every user-store round trip from a chat handler.
const storeTimeout = 5 * time.Second

// Handler wires Telegram updates to the watchlist manager and friends.
type Handler struct {
	bot             *tgbotapi.BotAPI
	manager         *watchlist.Manager
	verifier        *payments.Verifier
	llm             *anthropic.Client // nil disables the free-text path
	limiter         *ratelimit.KeyedLimiter
	poller          *market.Poller
	paymentWallet   string
	premiumPriceSOL float64
}

func NewHandler(
	bot *tgbotapi.BotAPI,
	manager *watchlist.Manager,
	verifier *payments.Verifier,
	llm *anthropic.Client,
	limiter *ratelimit.KeyedLimiter,
	poller *market.Poller,
	paymentWallet string,
	premiumPriceSOL float64,
) *Handler {
	return &Handler{
		bot:             bot,
		manager:         manager,
		verifier:        verifier,
		llm:             llm,
		limiter:         limiter,
		poller:          poller,
		paymentWallet:   paymentWallet,
		premiumPriceSOL: premiumPriceSOL,
	}
}

// Run consumes the long-polling update channel until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.bot.GetUpdatesChan(u)

	log.LogSuccess("command handler started", zap.String("bot", h.bot.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			h.handleMessage(ctx, update.Message)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatKey := strconv.FormatInt(msg.Chat.ID, 10)
	if !h.limiter.Allow(chatKey) {
		log.LogDebug("rate limited chat", zap.String("chatID", chatKey))
		return
	}

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}
	if msg.Text != "" && h.llm != nil {
		h.handleFreeText(ctx, msg)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	telegramID := strconv.FormatInt(msg.From.ID, 10)
	args := strings.Fields(msg.CommandArguments())

	log.LogDebug("received command",
		zap.String("command", msg.Command()),
		zap.String("telegramID", telegramID),
		zap.String("username", msg.From.UserName))

	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	switch msg.Command() {
	case "start":
		h.handleStart(opCtx, msg, telegramID)
	case "help":
		h.reply(msg, helpMessage)
	case "add":
		h.handleAdd(opCtx, msg, telegramID, args)
	case "remove":
		h.handleRemove(opCtx, msg, telegramID, args)
	case "watchlist":
		h.handleWatchlist(opCtx, msg, telegramID)
	case "subscribe":
		h.reply(msg, fmt.Sprintf(subscribeMessage, h.premiumPriceSOL, h.paymentWallet))
	case "verify":
		h.handleVerify(ctx, msg, telegramID, args)
	case "listings":
		h.handleListings(ctx, msg)
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message, telegramID string) {
	if _, err := h.manager.EnsureUser(ctx, telegramID, msg.From.UserName); err != nil {
		log.LogError("failed to ensure user", zap.String("telegramID", telegramID), zap.Error(err))
		h.reply(msg, storeDownMessage)
		return
	}
	h.reply(msg, welcomeMessage)
}

func (h *Handler) handleAdd(ctx context.Context, msg *tgbotapi.Message, telegramID string, args []string) {
	if len(args) == 0 {
		h.reply(msg, "Usage: /add <swarm_id> [token]\n\nExample: /add kinos USDC")
		return
	}
	swarmID := args[0]
	token := defaultToken
	if len(args) > 1 {
		token = args[1]
	}

	res, err := h.manager.Add(ctx, telegramID, swarmID, token)
	if err != nil {
		log.LogError("add to watchlist failed", zap.String("telegramID", telegramID), zap.Error(err))
		h.reply(msg, storeDownMessage)
		return
	}
	h.reply(msg, formatAddResult(res, swarmID, h.premiumPriceSOL))
}

func (h *Handler) handleRemove(ctx context.Context, msg *tgbotapi.Message, telegramID string, args []string) {
	if len(args) == 0 {
		h.reply(msg, "Usage: /remove <swarm_id> [token]\n\nExample: /remove kinos USDC")
		return
	}
	swarmID := args[0]
	token := defaultToken
	if len(args) > 1 {
		token = args[1]
	}

	res, err := h.manager.Remove(ctx, telegramID, swarmID, token)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.reply(msg, "Please use /start to initialize your account first.")
			return
		}
		log.LogError("remove from watchlist failed", zap.String("telegramID", telegramID), zap.Error(err))
		h.reply(msg, storeDownMessage)
		return
	}

	switch res.Outcome {
	case watchlist.Removed:
		h.reply(msg, fmt.Sprintf("Removed %s from your watchlist.", strings.ToUpper(swarmID)))
	case watchlist.NotPresent:
		h.reply(msg, fmt.Sprintf("%s is not on your watchlist.", strings.ToUpper(swarmID)))
	}
}

func (h *Handler) handleWatchlist(ctx context.Context, msg *tgbotapi.Message, telegramID string) {
	entries, err := h.manager.List(ctx, telegramID)
	if err != nil {
		log.LogError("list watchlist failed", zap.String("telegramID", telegramID), zap.Error(err))
		h.reply(msg, storeDownMessage)
		return
	}
	h.reply(msg, formatWatchlist(entries))
}

func (h *Handler) handleVerify(ctx context.Context, msg *tgbotapi.Message, telegramID string, args []string) {
	if len(args) == 0 {
		h.reply(msg, "Usage: /verify <transaction_signature>")
		return
	}
	signature := args[0]

	ok, err := h.verifier.Verify(ctx, signature)
	if err != nil {
		log.LogError("payment verification failed", zap.String("signature", signature), zap.Error(err))
		h.reply(msg, "Could not reach the payment network, please try again in a moment.")
		return
	}
	if !ok {
		h.reply(msg, "❌ Payment not found or below the required amount. Make sure the transaction is confirmed and try again.")
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	upgraded, err := h.manager.UpgradeToPremium(opCtx, telegramID, signature)
	if err != nil {
		log.LogError("premium upgrade failed", zap.String("telegramID", telegramID), zap.Error(err))
		h.reply(msg, storeDownMessage)
		return
	}
	if !upgraded {
		h.reply(msg, "Please use /start to initialize your account first.")
		return
	}
	h.reply(msg, premiumActivatedMessage)
}

func (h *Handler) handleListings(ctx context.Context, msg *tgbotapi.Message) {
	if h.poller == nil {
		return
	}
	listings, err := h.poller.CurrentBook(ctx)
	if err != nil {
		log.LogError("failed to fetch listings", zap.Error(err))
		h.reply(msg, "Could not fetch listings right now, please try again later.")
		return
	}
	h.reply(msg, formatListingsBook(listings))
}

// handleFreeText routes a plain message through the LLM and applies the
// extracted watchlist operation, if any.
func (h *Handler) handleFreeText(ctx context.Context, msg *tgbotapi.Message) {
	telegramID := strconv.FormatInt(msg.From.ID, 10)

	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	account, err := h.manager.EnsureUser(opCtx, telegramID, msg.From.UserName)
	cancel()
	if err != nil {
		log.LogError("failed to ensure user for chat", zap.String("telegramID", telegramID), zap.Error(err))
		return
	}

	intent, err := h.llm.ExtractIntent(ctx, msg.Text, renderUserContext(account))
	if err != nil {
		log.LogError("intent extraction failed", zap.String("telegramID", telegramID), zap.Error(err))
		h.reply(msg, "Sorry, I didn't catch that. Try /help for the available commands.")
		return
	}

	h.reply(msg, intent.UserResponse)

	opCtx, cancel = context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	switch intent.Operation.Name {
	case "add_to_watchlist":
		token := intent.Operation.Params.Token
		if token == "" {
			token = defaultToken
		}
		res, err := h.manager.Add(opCtx, telegramID, intent.Operation.Params.SwarmID, token)
		if err != nil {
			log.LogError("llm add failed", zap.String("telegramID", telegramID), zap.Error(err))
			return
		}
		if res.Outcome == watchlist.LimitReached {
			h.reply(msg, fmt.Sprintf(limitReachedMessage, h.premiumPriceSOL))
		}
	case "remove_from_watchlist":
		token := intent.Operation.Params.Token
		if token == "" {
			token = defaultToken
		}
		if _, err := h.manager.Remove(opCtx, telegramID, intent.Operation.Params.SwarmID, token); err != nil {
			log.LogError("llm remove failed", zap.String("telegramID", telegramID), zap.Error(err))
		}
	}
}

func (h *Handler) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := h.bot.Send(out); err != nil {
		log.LogError("failed to send reply", zap.Int64("chatID", msg.Chat.ID), zap.Error(err))
	}
}

func renderUserContext(account *store.UserAccount) string {
	keys := make([]string, 0, len(account.Watchlist))
	for _, e := range account.Watchlist {
		keys = append(keys, e.Key())
	}
	data, err := json.Marshal(map[string]interface{}{
		"status":      account.Status,
		"swarm_count": account.SwarmCount,
		"watchlist":   keys,
	})
	if err != nil {
		return "{}"
	}
	return string(data)
}
