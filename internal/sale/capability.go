package sale

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role names the authority level a capability confers.
type Role string

const (
	// RoleOwner has unrestricted authority over the sale, including profit
	// withdrawal and admin capability management.
	RoleOwner Role = "owner"
	// RoleAdmin may open/close the sale, change the price and top up the
	// item vault, but cannot withdraw proceeds.
	RoleAdmin Role = "admin"
)

// Capability is a bearer credential minted by the registry. Token is the
// bearer proof; it is produced once at mint and never stored in clear by
// the registry, so possession of the struct returned here is the only way
// to exercise the role.
type Capability struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Token string `json:"token"`
}

type capRecord struct {
	role    Role
	digest  [sha256.Size]byte
	revoked bool
}

// Registry is the capability issuer and verifier for one sale instance.
// It keeps only a digest of each minted secret; presented tokens are
// verified by structural comparison against the stored digest, never by
// trusting a caller-asserted role.
type Registry struct {
	caps        map[string]*capRecord
	ownerMinted bool
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{
		caps: map[string]*capRecord{},
	}
}

// MintOwner mints the single owner capability. It runs exactly once, during
// sale construction; the mint authority is then permanently locked. A second
// call is unreachable through the public surface and panics.
func (r *Registry) MintOwner() Capability {
	if r.ownerMinted {
		panic("owner capability already minted")
	}
	r.ownerMinted = true
	return r.mint(RoleOwner, "Owner Badge")
}

// MintAdmin mints a new admin capability. The registry itself does not gate
// this call; the service exposes it only behind the owner capability.
func (r *Registry) MintAdmin() Capability {
	return r.mint(RoleAdmin, "Admin Badge")
}

func (r *Registry) mint(role Role, name string) Capability {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Errorf("capability mint: %w", err))
	}

	id := uuid.NewString()
	r.caps[id] = &capRecord{
		role:   role,
		digest: sha256.Sum256(secret),
	}

	return Capability{
		ID:    id,
		Name:  name,
		Role:  role,
		Token: id + "." + hex.EncodeToString(secret),
	}
}

// Validate checks a presented bearer token and returns the role it confers
// and the capability ID it belongs to. Any failure (malformed token, unknown
// ID, wrong secret, revoked capability) is reported as ErrUnauthorized
// without distinguishing the cause to the caller.
func (r *Registry) Validate(token string) (Role, string, error) {
	id, secretHex, ok := strings.Cut(token, ".")
	if !ok {
		return "", "", fmt.Errorf("%w: malformed capability token", ErrUnauthorized)
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", "", fmt.Errorf("%w: malformed capability token", ErrUnauthorized)
	}

	rec, ok := r.caps[id]
	if !ok {
		return "", "", fmt.Errorf("%w: unknown capability", ErrUnauthorized)
	}
	digest := sha256.Sum256(secret)
	if subtle.ConstantTimeCompare(digest[:], rec.digest[:]) != 1 {
		return "", "", fmt.Errorf("%w: invalid capability token", ErrUnauthorized)
	}
	if rec.revoked {
		return "", "", fmt.Errorf("%w: capability has been revoked", ErrUnauthorized)
	}
	return rec.role, id, nil
}

// Revoke invalidates an issued admin capability. The owner capability
// cannot be recalled. Revocation is independent of the validation path:
// already-presented tokens simply stop validating.
func (r *Registry) Revoke(capID string) error {
	rec, ok := r.caps[capID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCapabilityNotFound, capID)
	}
	if rec.role == RoleOwner {
		return ErrNotRecallable
	}
	rec.revoked = true
	return nil
}
