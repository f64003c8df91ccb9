package botmonitor

import (
	"context"

	"swarmventures/internal/clients_api/solana"
	"swarmventures/internal/market"
)

// ProgramSource feeds the listing poller from the on-chain listing program,
// filtered server-side by the account discriminator.
type ProgramSource struct {
	rpc       *solana.Client
	programID string
}

func NewProgramSource(rpc *solana.Client, programID string) *ProgramSource {
	return &ProgramSource{rpc: rpc, programID: programID}
}

func (s *ProgramSource) FetchListingAccounts(ctx context.Context) ([]market.RawAccount, error) {
	accounts, err := s.rpc.GetProgramAccountsByDiscriminator(ctx, s.programID, market.DiscriminatorBase58())
	if err != nil {
		return nil, err
	}
	raw := make([]market.RawAccount, 0, len(accounts))
	for _, a := range accounts {
		raw = append(raw, market.RawAccount{Pubkey: a.Pubkey, Data: a.Data})
	}
	return raw, nil
}
