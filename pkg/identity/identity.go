// Package identity validates the untrusted scalar inputs of a data request
// and derives caller identities from upstream claims.
package identity

import (
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/TFMV/warden/pkg/errors"
	"github.com/TFMV/warden/pkg/models"
)

// Customer ids are exactly five alphanumerics, order ids exactly five
// decimal digits. Validation runs on the raw string: no trimming, no case
// folding. Anything else must never reach SQL text.
var (
	customerIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{5}$`)
	orderIDPattern    = regexp.MustCompile(`^[0-9]{5}$`)
)

// ValidCustomerID reports whether s is a well-formed customer id.
func ValidCustomerID(s string) bool {
	return customerIDPattern.MatchString(s)
}

// ValidOrderID reports whether s is a well-formed order id.
func ValidOrderID(s string) bool {
	return orderIDPattern.MatchString(s)
}

// EscapeLiteral doubles single quotes for embedding a value as a SQL string
// literal. This is defense-in-depth behind the validators, not a substitute
// for them: a value containing a quote fails validation long before it gets
// here.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Claim names expected from the upstream authentication boundary.
const (
	ClaimCustomerID = "sub"
	ClaimRole       = "role"
	ClaimOrderID    = "order_id"
)

// FromClaims derives a CallerIdentity from a verified JWT claim set. The
// warden does not verify signatures; the upstream boundary has already
// authenticated the caller.
func FromClaims(claims jwt.MapClaims) (models.CallerIdentity, error) {
	sub, ok := claims[ClaimCustomerID].(string)
	if !ok || sub == "" {
		return models.CallerIdentity{}, errors.New(errors.CodePermissionDenied, "missing subject claim")
	}

	roleName, ok := claims[ClaimRole].(string)
	if !ok || roleName == "" {
		return models.CallerIdentity{}, errors.New(errors.CodePermissionDenied, "missing role claim")
	}
	role, err := models.ParseRole(roleName)
	if err != nil {
		return models.CallerIdentity{}, errors.Wrap(err, errors.CodePermissionDenied, "unrecognized role claim")
	}

	ident := models.CallerIdentity{
		ID:   sub,
		Role: role,
	}
	if orderID, ok := claims[ClaimOrderID].(string); ok {
		ident.ScopeKey = orderID
	}
	return ident, nil
}
