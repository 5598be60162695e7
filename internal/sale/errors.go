package sale

import "errors"

// ErrNotFound is returned when a sale with the given ID is not found.
var ErrNotFound = errors.New("sale not found")

// ErrEmptyID is returned when trying to store a sale with an empty ID.
var ErrEmptyID = errors.New("empty sale ID")

// ErrUnauthorized is returned when the presented capability does not
// satisfy the operation's required role set.
var ErrUnauthorized = errors.New("capability does not authorize this operation")

// ErrSaleClosed is returned when buy is called before the sale is started.
var ErrSaleClosed = errors.New("sale is not open yet")

// ErrWrongToken is returned when payment is offered in a token other than
// the accepted payment kind.
var ErrWrongToken = errors.New("payment token not accepted")

// ErrQuantityLimit is returned when a single purchase asks for more than
// MaxItemsPerPurchase items.
var ErrQuantityLimit = errors.New("purchase quantity out of range")

// ErrInsufficientPayment is returned when the offered payment does not
// cover unit price times quantity.
var ErrInsufficientPayment = errors.New("insufficient payment")

// ErrInsufficientBalance is returned by a vault when the requested
// withdrawal exceeds its holdings.
var ErrInsufficientBalance = errors.New("insufficient vault balance")

// ErrInvalidPrice is returned when a negative price is supplied.
var ErrInvalidPrice = errors.New("price cannot be negative")

// ErrNonFungiblePayment is returned at instantiation when the payment kind
// is not a fungible resource.
var ErrNonFungiblePayment = errors.New("only fungible payment kinds are accepted")

// ErrNothingToWithdraw is returned when withdraw_profits finds the payment
// vault empty.
var ErrNothingToWithdraw = errors.New("payment vault is empty")

// ErrWrongItemKind is returned when deposited items do not match the vault's
// configured item kind.
var ErrWrongItemKind = errors.New("item kind does not match the sale's catalogue")

// ErrDuplicateItem is returned when a deposit contains an item ID the vault
// already holds, or the same ID twice.
var ErrDuplicateItem = errors.New("item ID already held in the vault")

// ErrCapabilityNotFound is returned when revoking a capability the registry
// does not know.
var ErrCapabilityNotFound = errors.New("capability not found")

// ErrNotRecallable is returned when attempting to recall the owner
// capability.
var ErrNotRecallable = errors.New("owner capability is not recallable")
