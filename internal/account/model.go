package account

import "time"

// Account kinds. A merchant account can receive transfers but the rest of
// the system only ever relies on "account owns exactly one wallet", never on
// the concrete kind.
const (
	KindUser     = "user"
	KindMerchant = "merchant"
)

// Account represents a registered wallet owner, either a person or a merchant.
type Account struct {
	ID           string
	Kind         string
	Name         string
	Email        string
	Document     string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials carry a login request.
type Credentials struct {
	Email    string
	Password string
}
