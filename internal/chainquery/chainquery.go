// Package chainquery defines the chain-query collaborator contract named in
// spec.md §6: "query_balance(owner) -> [(token, amountString)]; the core
// wraps this and reparses amounts as integers." This package ships one
// fixed-table reference implementation.
package chainquery

import (
	"context"
	"math/big"

	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

// Balance is one (token, amount) pair after the core has reparsed the
// collaborator's decimal-string amount as an integer.
type Balance struct {
	Token  string
	Amount *big.Int
}

// Querier is the external chain-query contract.
type Querier interface {
	QueryBalance(ctx context.Context, owner string) ([]Balance, error)
}

// RawBalance mirrors the collaborator's wire shape: amounts as decimal
// strings, reparsed by the core per spec.md §6.
type RawBalance struct {
	Token  string
	Amount string
}

// Static is a fixed-table Querier, useful for tests and offline demos.
type Static struct {
	table map[string][]RawBalance
}

// NewStatic builds a Static querier from an owner->balances table.
func NewStatic(table map[string][]RawBalance) *Static {
	copied := make(map[string][]RawBalance, len(table))
	for k, v := range table {
		copied[k] = append([]RawBalance{}, v...)
	}
	return &Static{table: copied}
}

// QueryBalance implements Querier, reparsing each decimal-string amount as
// a big.Int and failing closed on a malformed amount rather than silently
// dropping it.
func (s *Static) QueryBalance(_ context.Context, owner string) ([]Balance, error) {
	rows, ok := s.table[owner]
	if !ok {
		return nil, nil
	}

	balances := make([]Balance, 0, len(rows))
	for _, row := range rows {
		amount, ok := new(big.Int).SetString(row.Amount, 10)
		if !ok {
			return nil, keyerr.New("INVALID_BALANCE", "chain query returned a non-integer amount for "+row.Token)
		}
		balances = append(balances, Balance{Token: row.Token, Amount: amount})
	}
	return balances, nil
}

// Default returns an empty Static querier — balances are seeded per-test
// or wired to a real chain-query service in production.
func Default() *Static {
	return NewStatic(nil)
}
