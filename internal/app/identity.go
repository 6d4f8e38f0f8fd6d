package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/chain"
)

type AccountFetcher interface {
	GetAccount(ctx context.Context, name string) (chain.Account, error)
}

// IdentityVerifier checks recovered keys against an account's registered keys.
type IdentityVerifier struct {
	accounts AccountFetcher
	log      *zap.Logger
}

func NewIdentityVerifier(accounts AccountFetcher, log *zap.Logger) *IdentityVerifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityVerifier{accounts: accounts, log: log}
}

// VerifyOwnership reports whether any candidate key is registered under any
// permission of account. Lookup failures count as not verified.
func (v *IdentityVerifier) VerifyOwnership(ctx context.Context, account string, candidates []string) bool {
	if account == "" || len(candidates) == 0 {
		return false
	}
	acc, err := v.accounts.GetAccount(ctx, account)
	if err != nil {
		v.log.Warn("account lookup failed", zap.String("account", account), zap.Error(err))
		return false
	}
	for _, registered := range acc.Keys() {
		for _, candidate := range candidates {
			if chain.SamePublicKey(registered, candidate) {
				return true
			}
		}
	}
	return false
}
