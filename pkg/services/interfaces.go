// Package services contains the authorization decision logic.
package services

import (
	"github.com/TFMV/warden/pkg/models"
)

// QueryBuilder maps a caller identity and a logical resource request to
// either a validated query or a rejection. Implementations are synchronous,
// deterministic for identical inputs, and safe for concurrent use.
type QueryBuilder interface {
	// BuildQuery returns a Procedure or a classifier-gated AdHoc query, or
	// an error from the warden taxonomy. It never returns a query that has
	// not passed validation.
	BuildQuery(identity models.CallerIdentity, req models.ResourceRequest) (models.Query, error)
}
