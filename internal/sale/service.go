package sale

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxItemsPerPurchase caps the quantity of a single buy call.
const MaxItemsPerPurchase = 10

// Service provides the custody and exchange operations on a Storage
// backend. All mutating operations on one sale run under that sale's
// mutex: a call completes fully, including all vault mutations and
// capability checks, before the next call against the same sale begins.
type Service struct {
	storage Storage
	logger  *zap.Logger
}

// NewService creates a new Service.
func NewService(storage Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Instantiate creates a new sale for the given item kind, priced in the
// given payment kind. It mints the owner and admin capabilities and hands
// them back to the caller; the service keeps only their digests. The sale
// starts closed.
func (s *Service) Instantiate(itemKind, paymentKind ResourceKind, initialPrice decimal.Decimal) (Info, Capability, Capability, error) {
	if !paymentKind.Fungible {
		return Info{}, Capability{}, Capability{}, fmt.Errorf("%w: %s", ErrNonFungiblePayment, paymentKind.ID)
	}
	if itemKind.Fungible {
		return Info{}, Capability{}, Capability{}, fmt.Errorf("%w: item kind %s must be non-fungible", ErrWrongItemKind, itemKind.ID)
	}
	if initialPrice.IsNegative() {
		return Info{}, Capability{}, Capability{}, fmt.Errorf("%w: %s", ErrInvalidPrice, initialPrice)
	}

	caps := NewRegistry()
	ownerCap := caps.MintOwner()
	adminCap := caps.MintAdmin()

	sl := &Sale{
		ID:                  uuid.NewString(),
		itemVault:           NewItemVault(itemKind.ID),
		paymentVault:        NewTokenVault(paymentKind.ID),
		acceptedPaymentKind: paymentKind.ID,
		unitPrice:           initialPrice,
		saleOpen:            false,
		caps:                caps,
		createdAt:           time.Now(),
	}

	if err := s.storage.Set(sl); err != nil {
		s.logger.Error("failed to save sale", zap.String("sale_id", sl.ID), zap.Error(err))
		return Info{}, Capability{}, Capability{}, fmt.Errorf("failed to save sale: %w", err)
	}

	s.logger.Info("sale instantiated",
		zap.String("sale_id", sl.ID),
		zap.String("item_kind", itemKind.ID),
		zap.String("payment_kind", paymentKind.ID),
		zap.String("price", initialPrice.String()),
	)
	return sl.info(), ownerCap, adminCap, nil
}

// StartSale opens the sale for purchases. Requires admin or owner.
func (s *Service) StartSale(saleID, token string) error {
	return s.setOpen(saleID, token, OpStartSale, true)
}

// EndSale closes the sale. Requires admin or owner.
func (s *Service) EndSale(saleID, token string) error {
	return s.setOpen(saleID, token, OpEndSale, false)
}

func (s *Service) setOpen(saleID, token string, op Operation, open bool) error {
	sl, err := s.storage.Read(saleID)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if err := Authorize(sl.caps, token, op); err != nil {
		return err
	}
	sl.saleOpen = open

	s.logger.Info("sale gate changed", zap.String("sale_id", saleID), zap.Bool("open", open))
	return nil
}

// ChangePrice sets a new unit price. Requires admin or owner.
func (s *Service) ChangePrice(saleID, token string, price decimal.Decimal) error {
	sl, err := s.storage.Read(saleID)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if err := Authorize(sl.caps, token, OpChangePrice); err != nil {
		return err
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	sl.unitPrice = price

	s.logger.Info("price changed", zap.String("sale_id", saleID), zap.String("price", price.String()))
	return nil
}

// AddItems deposits items into the sale's item vault. Every item must match
// the catalogue's kind. Requires admin or owner.
func (s *Service) AddItems(saleID, token string, items []Item) error {
	sl, err := s.storage.Read(saleID)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if err := Authorize(sl.caps, token, OpAddItems); err != nil {
		return err
	}
	if err := sl.itemVault.Deposit(items); err != nil {
		return err
	}

	s.logger.Info("items added",
		zap.String("sale_id", saleID),
		zap.Int("count", len(items)),
		zap.Int("items_remaining", sl.itemVault.Balance()),
	)
	return nil
}

// Buy exchanges payment for count items. Public; no capability required.
// Preconditions are checked in order before any state is touched, so a
// failing call leaves both vaults unchanged and the payment unconsumed. On
// success the cost (unit price times count) moves into the payment vault
// and the caller receives the change plus the purchased items, taken
// lowest-ID-first from whatever remains in the item vault.
func (s *Service) Buy(saleID string, payment Payment, count int) (Payment, []Item, error) {
	sl, err := s.storage.Read(saleID)
	if err != nil {
		return Payment{}, nil, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.saleOpen {
		return Payment{}, nil, fmt.Errorf("%w: please wait until the sale starts", ErrSaleClosed)
	}
	if payment.Kind != sl.acceptedPaymentKind {
		return Payment{}, nil, fmt.Errorf("%w: payment is only accepted in %s", ErrWrongToken, sl.acceptedPaymentKind)
	}
	if count < 1 || count > MaxItemsPerPurchase {
		return Payment{}, nil, fmt.Errorf("%w: between 1 and %d items per purchase, got %d", ErrQuantityLimit, MaxItemsPerPurchase, count)
	}

	cost := sl.unitPrice.Mul(decimal.NewFromInt(int64(count)))
	if payment.Amount.LessThan(cost) {
		return Payment{}, nil, fmt.Errorf("%w: this sale can only go through when %s tokens are provided", ErrInsufficientPayment, cost)
	}

	items, err := sl.itemVault.Withdraw(count)
	if err != nil {
		return Payment{}, nil, err
	}
	sl.paymentVault.Deposit(cost)
	change := Payment{Kind: sl.acceptedPaymentKind, Amount: payment.Amount.Sub(cost)}

	s.logger.Info("purchase completed",
		zap.String("sale_id", saleID),
		zap.Int("count", count),
		zap.String("cost", cost.String()),
		zap.String("change", change.Amount.String()),
		zap.Int("items_remaining", sl.itemVault.Balance()),
	)
	return change, items, nil
}

// WithdrawProfits drains the payment vault and returns everything it held.
// Requires the owner capability.
func (s *Service) WithdrawProfits(saleID, token string) (Payment, error) {
	sl, err := s.storage.Read(saleID)
	if err != nil {
		return Payment{}, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if err := Authorize(sl.caps, token, OpWithdrawProfits); err != nil {
		return Payment{}, err
	}
	if sl.paymentVault.IsEmpty() {
		return Payment{}, fmt.Errorf("%w: cannot withdraw funds when the payment vault is empty", ErrNothingToWithdraw)
	}
	profits := sl.paymentVault.TakeAll()

	s.logger.Info("profits withdrawn",
		zap.String("sale_id", saleID),
		zap.String("amount", profits.Amount.String()),
	)
	return profits, nil
}

// MintAdmin issues a new admin capability for the sale. Requires the owner
// capability; the bearer proof is returned once and never stored.
func (s *Service) MintAdmin(saleID, token string) (Capability, error) {
	sl, err := s.storage.Read(saleID)
	if err != nil {
		return Capability{}, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if err := Authorize(sl.caps, token, OpMintAdmin); err != nil {
		return Capability{}, err
	}
	adminCap := sl.caps.MintAdmin()

	s.logger.Info("admin capability minted", zap.String("sale_id", saleID), zap.String("cap_id", adminCap.ID))
	return adminCap, nil
}

// RevokeAdmin recalls an issued admin capability so its token stops
// validating. Requires the owner capability; the owner capability itself
// cannot be recalled.
func (s *Service) RevokeAdmin(saleID, token, capID string) error {
	sl, err := s.storage.Read(saleID)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if err := Authorize(sl.caps, token, OpRevokeAdmin); err != nil {
		return err
	}
	if err := sl.caps.Revoke(capID); err != nil {
		return err
	}

	s.logger.Info("admin capability revoked", zap.String("sale_id", saleID), zap.String("cap_id", capID))
	return nil
}

// Price returns the accepted payment kind and the current unit price.
// Public read, no side effects.
func (s *Service) Price(saleID string) (string, decimal.Decimal, error) {
	sl, err := s.storage.Read(saleID)
	if err != nil {
		return "", decimal.Zero, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.acceptedPaymentKind, sl.unitPrice, nil
}

// IsSold reports whether any sales have happened yet, i.e. the payment
// vault is non-empty. Public read.
func (s *Service) IsSold(saleID string) (bool, error) {
	sl, err := s.storage.Read(saleID)
	if err != nil {
		return false, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return !sl.paymentVault.IsEmpty(), nil
}

// ListSales returns the public view of every hosted sale, ordered by
// creation time so the listing is stable across calls.
func (s *Service) ListSales() ([]Info, error) {
	all, err := s.storage.GetAll()
	if err != nil {
		s.logger.Error("failed to get all sales from storage", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve sales: %w", err)
	}

	infos := make([]Info, 0, len(all))
	for _, sl := range all {
		sl.mu.Lock()
		infos = append(infos, sl.info())
		sl.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

// GetSale returns the public view of a sale.
func (s *Service) GetSale(saleID string) (Info, error) {
	sl, err := s.storage.Read(saleID)
	if err != nil {
		return Info{}, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.info(), nil
}
