package sale

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ResourceKind identifies a resource type that vaults and payments refer to.
// Fungible kinds are amount-addressed; non-fungible kinds hold individually
// identified units.
type ResourceKind struct {
	ID       string `json:"id"`
	Fungible bool   `json:"fungible"`
}

// Item is a single unique unit of a non-fungible resource kind.
type Item struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Payment is an amount of a fungible resource kind, offered by a buyer or
// returned as change or withdrawn profits.
type Payment struct {
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// Sale holds the custody and exchange state for one escrow instance. The
// vaults and the capability registry are private to the instance; callers
// only reach them through the service operations. Every operation on a Sale
// runs under mu, one call completing fully before the next begins.
type Sale struct {
	ID string

	mu sync.Mutex

	itemVault    *ItemVault
	paymentVault *TokenVault

	acceptedPaymentKind string
	unitPrice           decimal.Decimal
	saleOpen            bool

	caps *Registry

	createdAt time.Time
}

// Info is the externally visible projection of a Sale.
type Info struct {
	ID                  string          `json:"id"`
	ItemKind            string          `json:"item_kind"`
	AcceptedPaymentKind string          `json:"accepted_payment_kind"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	SaleOpen            bool            `json:"sale_open"`
	ItemsRemaining      int             `json:"items_remaining"`
	Sold                bool            `json:"sold"`
	CreatedAt           time.Time       `json:"created_at"`
}

// info builds the public view. Callers must hold s.mu.
func (s *Sale) info() Info {
	return Info{
		ID:                  s.ID,
		ItemKind:            s.itemVault.Kind(),
		AcceptedPaymentKind: s.acceptedPaymentKind,
		UnitPrice:           s.unitPrice,
		SaleOpen:            s.saleOpen,
		ItemsRemaining:      s.itemVault.Balance(),
		Sold:                !s.paymentVault.IsEmpty(),
		CreatedAt:           s.createdAt,
	}
}
