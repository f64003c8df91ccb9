package solana

// getProgramAccounts and getTransaction wrappers used by the listing
// poller and the payment verifier.

import (
	"context"
	"encoding/base64"
	"fmt"
)

// ProgramAccount is one account returned by getProgramAccounts, with its
// data already base64-decoded.
type ProgramAccount struct {
	Pubkey string
	Data   []byte
}

type programAccountsResult []struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Data []string `json:"data"` // [payload, encoding]
	} `json:"account"`
}

// GetProgramAccountsByDiscriminator fetches all accounts owned by
// programID whose data starts with the given base58-encoded
// discriminator (memcmp at offset 0).
func (c *Client) GetProgramAccountsByDiscriminator(ctx context.Context, programID, discriminatorB58 string) ([]ProgramAccount, error) {
	params := []interface{}{
		programID,
		map[string]interface{}{
			"encoding": "base64",
			"filters": []interface{}{
				map[string]interface{}{
					"memcmp": map[string]interface{}{
						"offset": 0,
						"bytes":  discriminatorB58,
					},
				},
			},
		},
	}

	var result programAccountsResult
	if err := c.Call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, err
	}

	accounts := make([]ProgramAccount, 0, len(result))
	for _, entry := range result {
		if len(entry.Account.Data) == 0 {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(entry.Account.Data[0])
		if err != nil {
			return nil, fmt.Errorf("decode account %s data: %w", entry.Pubkey, err)
		}
		accounts = append(accounts, ProgramAccount{Pubkey: entry.Pubkey, Data: raw})
	}
	return accounts, nil
}

// Transaction is the subset of getTransaction output needed to verify a
// payment: balance movements per account key.
type Transaction struct {
	Meta struct {
		Err          interface{} `json:"err"`
		PreBalances  []uint64    `json:"preBalances"`
		PostBalances []uint64    `json:"postBalances"`
	} `json:"meta"`
	TransactionBody struct {
		Message struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

// GetTransaction fetches a confirmed transaction by signature. Returns
// nil when the node does not know the signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{"encoding": "json", "maxSupportedTransactionVersion": 0},
	}

	var tx *Transaction
	if err := c.Call(ctx, "getTransaction", params, &tx); err != nil {
		return nil, err
	}
	return tx, nil
}
