// Package models provides data structures used throughout the query warden.
package models

import "fmt"

// Role represents the privilege level of a caller.
type Role int

const (
	// RoleUser is a non-privileged caller restricted to rows matching its own identity.
	RoleUser Role = iota
	// RoleAdmin may read row-scoped tables without a per-caller filter.
	RoleAdmin
)

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole parses a role name. Unknown names are an error, never a
// silent downgrade or upgrade.
func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleUser, fmt.Errorf("unknown role: %q", s)
	}
}

// CallerIdentity describes the already-authenticated caller of one data
// request. It is created per request and never persisted.
type CallerIdentity struct {
	// ID is the caller's customer identifier.
	ID string `json:"id"`
	// Role is the caller's privilege level.
	Role Role `json:"role"`
	// ScopeKey is an optional secondary scope value, e.g. an order id.
	ScopeKey string `json:"scope_key,omitempty"`
}

// ResourceRequest names the logical unit of data the caller is asking for.
type ResourceRequest struct {
	// LogicalID is the client-supplied identifier naming a table, stored
	// procedure, or named query.
	LogicalID string `json:"logical_id"`
	// Table optionally overrides the physical table name for table-backed
	// resources. Empty means LogicalID is the table name.
	Table string `json:"table,omitempty"`
	// Procedure optionally overrides the procedure name for procedure-backed
	// resources.
	Procedure string `json:"procedure,omitempty"`
}

// TableName returns the physical table name for a table-backed request.
func (r ResourceRequest) TableName() string {
	if r.Table != "" {
		return r.Table
	}
	return r.LogicalID
}

// Parameter is one named value bound to a procedure call. Parameters are
// bound by the execution layer, never interpolated into SQL text.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Query is a validated query ready for the execution layer. It is either a
// Procedure (trusted by construction, parameters bound) or an AdHoc fragment
// that has passed read-only classification. The two variants are distinct
// types so unclassified interpolated text cannot be returned by accident.
type Query interface {
	// Text returns a loggable representation of the query.
	Text() string

	queryVariant()
}

// Procedure is a parameterized stored-procedure call. It bypasses the
// read-only classifier: parameters are bound, never concatenated.
type Procedure struct {
	Name   string      `json:"name"`
	Params []Parameter `json:"params,omitempty"`
}

// Text returns a loggable representation of the procedure call.
func (p Procedure) Text() string {
	if len(p.Params) == 0 {
		return p.Name
	}
	text := p.Name
	for i, param := range p.Params {
		if i == 0 {
			text += " "
		} else {
			text += ", "
		}
		text += param.Name
	}
	return text
}

func (Procedure) queryVariant() {}

// AdHoc is SQL text synthesized or accepted at request time. A value of this
// type only ever reaches a caller after passing the read-only classifier.
type AdHoc struct {
	SQL string `json:"sql"`
}

// Text returns the SQL text.
func (a AdHoc) Text() string { return a.SQL }

func (AdHoc) queryVariant() {}

// AllowedResourceEntry is one row of the operator-editable allow-list. The
// set of entries whose column matches the scope column (case-insensitive)
// defines the row-scoped tables.
type AllowedResourceEntry struct {
	Schema string `yaml:"schema" json:"schema"`
	Table  string `yaml:"table" json:"table"`
	Column string `yaml:"column" json:"column"`
}
