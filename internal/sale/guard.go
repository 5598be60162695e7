package sale

import "fmt"

// Operation names a privileged call for the access guard.
type Operation string

const (
	OpStartSale       Operation = "start_sale"
	OpEndSale         Operation = "end_sale"
	OpChangePrice     Operation = "change_price"
	OpAddItems        Operation = "add_items"
	OpWithdrawProfits Operation = "withdraw_profits"
	OpMintAdmin       Operation = "mint_admin"
	OpRevokeAdmin     Operation = "revoke_admin"
)

// requiredRoles maps each privileged operation to the roles that satisfy
// it. Operations absent from the table (price, is_sold, buy) are public and
// never pass through the guard.
var requiredRoles = map[Operation][]Role{
	OpStartSale:       {RoleAdmin, RoleOwner},
	OpEndSale:         {RoleAdmin, RoleOwner},
	OpChangePrice:     {RoleAdmin, RoleOwner},
	OpAddItems:        {RoleAdmin, RoleOwner},
	OpWithdrawProfits: {RoleOwner},
	OpMintAdmin:       {RoleOwner},
	OpRevokeAdmin:     {RoleOwner},
}

// Authorize validates the presented bearer token against the registry and
// checks that its role is in the operation's required set. It reads the
// registry only; granting and recalling capabilities happen elsewhere.
func Authorize(reg *Registry, token string, op Operation) error {
	role, _, err := reg.Validate(token)
	if err != nil {
		return err
	}
	roles, ok := requiredRoles[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %q", ErrUnauthorized, op)
	}
	for _, r := range roles {
		if role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: %s requires one of %v, capability confers %s", ErrUnauthorized, op, roles, role)
}
