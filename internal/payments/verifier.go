package payments

// One-time premium payment verification. A payment is valid when the
// referenced transaction confirmed without error and moved at least the
// required amount of lamports into the payment wallet.

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"swarmventures/internal/clients_api/solana"
	log "swarmventures/internal/infra/log"
)

const LamportsPerSOL = 1_000_000_000

// TransactionFetcher is the slice of the RPC client the verifier needs.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

type Verifier struct {
	rpc              TransactionFetcher
	paymentWallet    string
	requiredLamports uint64
}

// NewVerifier checks transfers of at least priceSOL into paymentWallet.
func NewVerifier(rpc TransactionFetcher, paymentWallet string, priceSOL float64) *Verifier {
	return &Verifier{
		rpc:              rpc,
		paymentWallet:    paymentWallet,
		requiredLamports: uint64(priceSOL * LamportsPerSOL),
	}
}

// Verify confirms the signature pays for premium access. A false return
// with nil error means the transaction exists but does not qualify.
func (v *Verifier) Verify(ctx context.Context, signature string) (bool, error) {
	tx, err := v.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return false, fmt.Errorf("fetch transaction %s: %w", signature, err)
	}
	if tx == nil {
		log.LogWarn("payment signature not found", zap.String("signature", signature))
		return false, nil
	}
	if tx.Meta.Err != nil {
		log.LogWarn("payment transaction failed on chain", zap.String("signature", signature))
		return false, nil
	}

	keys := tx.TransactionBody.Message.AccountKeys
	for i, key := range keys {
		if key != v.paymentWallet {
			continue
		}
		if i >= len(tx.Meta.PreBalances) || i >= len(tx.Meta.PostBalances) {
			return false, nil
		}
		pre := tx.Meta.PreBalances[i]
		post := tx.Meta.PostBalances[i]
		if post > pre && post-pre >= v.requiredLamports {
			log.LogSuccess("payment verified",
				zap.String("signature", signature),
				zap.Uint64("lamports", post-pre))
			return true, nil
		}
		log.LogWarn("payment amount below required",
			zap.String("signature", signature),
			zap.Uint64("required", v.requiredLamports))
		return false, nil
	}
	return false, nil
}
