package market

// Poll-cycle plumbing between the chain account source and the
// notification path. A decode failure skips that one account; the rest
// of the batch still goes out.

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"swarmventures/internal/infra/fs"
	log "swarmventures/internal/infra/log"
)

// RawAccount is one candidate listing account fetched from the chain.
type RawAccount struct {
	Pubkey string
	Data   []byte
}

// AccountSource fetches the raw ShareListing accounts currently on chain.
type AccountSource interface {
	FetchListingAccounts(ctx context.Context) ([]RawAccount, error)
}

// Poller decodes listing accounts and tracks which listing ids were
// already surfaced.
type Poller struct {
	source  AccountSource
	dataDir string
	seen    map[string]bool
}

func NewPoller(source AccountSource, dataDir string) (*Poller, error) {
	seen, err := fs.LoadSeenListings(dataDir)
	if err != nil {
		return nil, err
	}
	return &Poller{source: source, dataDir: dataDir, seen: seen}, nil
}

// DecodeBatch decodes every account, dropping malformed ones.
func DecodeBatch(accounts []RawAccount) []Listing {
	listings := make([]Listing, 0, len(accounts))
	for _, account := range accounts {
		listing, err := DecodeListing(account.Data)
		if err != nil {
			log.LogWarn("skipping undecodable listing account",
				zap.String("pubkey", account.Pubkey),
				zap.Error(err))
			continue
		}
		listings = append(listings, listing)
	}
	return listings
}

// CurrentBook fetches and decodes the full set of live listings without
// touching the seen set.
func (p *Poller) CurrentBook(ctx context.Context) ([]Listing, error) {
	accounts, err := p.source.FetchListingAccounts(ctx)
	if err != nil {
		return nil, err
	}
	listings := DecodeBatch(accounts)
	sort.Slice(listings, func(i, j int) bool { return listings[i].ListingID < listings[j].ListingID })
	return listings, nil
}

// PollNew fetches the current book and returns only listings whose id
// has not been surfaced before, in listing-id order.
func (p *Poller) PollNew(ctx context.Context) ([]Listing, error) {
	accounts, err := p.source.FetchListingAccounts(ctx)
	if err != nil {
		return nil, err
	}

	var fresh []Listing
	for _, listing := range DecodeBatch(accounts) {
		if p.seen[listing.ListingID] {
			continue
		}
		p.seen[listing.ListingID] = true
		fresh = append(fresh, listing)
	}

	if len(fresh) > 0 {
		sort.Slice(fresh, func(i, j int) bool { return fresh[i].ListingID < fresh[j].ListingID })
		if err := fs.SaveSeenListings(p.dataDir, p.seen); err != nil {
			log.LogWarn("failed to persist seen listings", zap.Error(err))
		}
	}
	return fresh, nil
}
