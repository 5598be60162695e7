package sale

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ItemVault holds the unique items of a single non-fungible resource kind.
// Withdrawal is by count only; buyers never pick which units they receive.
type ItemVault struct {
	kind  string
	items map[string]Item
}

// NewItemVault creates an empty vault for the given item kind.
func NewItemVault(kind string) *ItemVault {
	return &ItemVault{
		kind:  kind,
		items: map[string]Item{},
	}
}

// Kind returns the resource kind this vault accepts.
func (v *ItemVault) Kind() string {
	return v.kind
}

// Deposit adds items to the vault. Every item must match the vault's kind
// and carry an ID the vault does not already hold; any violation rejects
// the whole bucket and nothing is deposited.
func (v *ItemVault) Deposit(items []Item) error {
	seen := map[string]bool{}
	for _, it := range items {
		if it.Kind != v.kind {
			return fmt.Errorf("%w: got %q, vault holds %q", ErrWrongItemKind, it.Kind, v.kind)
		}
		if _, held := v.items[it.ID]; held || seen[it.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateItem, it.ID)
		}
		seen[it.ID] = true
	}
	for _, it := range items {
		v.items[it.ID] = it
	}
	return nil
}

// Withdraw removes count items and returns them, taking the lowest item IDs
// first so selection is deterministic. Fails with ErrInsufficientBalance,
// leaving the vault untouched, if fewer than count items are held.
func (v *ItemVault) Withdraw(count int) ([]Item, error) {
	if count > len(v.items) {
		return nil, fmt.Errorf("%w: %d items requested, %d held", ErrInsufficientBalance, count, len(v.items))
	}
	ids := make([]string, 0, len(v.items))
	for id := range v.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	taken := make([]Item, 0, count)
	for _, id := range ids[:count] {
		taken = append(taken, v.items[id])
		delete(v.items, id)
	}
	return taken, nil
}

// Balance returns the number of items held.
func (v *ItemVault) Balance() int {
	return len(v.items)
}

// IsEmpty reports whether the vault holds no items.
func (v *ItemVault) IsEmpty() bool {
	return len(v.items) == 0
}

// TokenVault holds an amount of a single fungible resource kind. Units have
// no identity, only quantity.
type TokenVault struct {
	kind    string
	balance decimal.Decimal
}

// NewTokenVault creates an empty vault for the given fungible kind.
func NewTokenVault(kind string) *TokenVault {
	return &TokenVault{
		kind:    kind,
		balance: decimal.Zero,
	}
}

// Kind returns the resource kind this vault accepts.
func (v *TokenVault) Kind() string {
	return v.kind
}

// Deposit adds amount to the vault balance.
func (v *TokenVault) Deposit(amount decimal.Decimal) {
	v.balance = v.balance.Add(amount)
}

// Withdraw removes amount from the vault and returns it as a Payment.
// Fails with ErrInsufficientBalance if the vault holds less than amount.
func (v *TokenVault) Withdraw(amount decimal.Decimal) (Payment, error) {
	if amount.GreaterThan(v.balance) {
		return Payment{}, fmt.Errorf("%w: %s requested, %s held", ErrInsufficientBalance, amount, v.balance)
	}
	v.balance = v.balance.Sub(amount)
	return Payment{Kind: v.kind, Amount: amount}, nil
}

// TakeAll drains the vault and returns everything it held.
func (v *TokenVault) TakeAll() Payment {
	all := Payment{Kind: v.kind, Amount: v.balance}
	v.balance = decimal.Zero
	return all
}

// Balance returns the amount held.
func (v *TokenVault) Balance() decimal.Decimal {
	return v.balance
}

// IsEmpty reports whether the vault balance is zero.
func (v *TokenVault) IsEmpty() bool {
	return v.balance.IsZero()
}
