// Package classifier parses SQL text and decides whether it is read-only.
//
// Parsing uses sqlparser's MySQL grammar, so SQL handed to Classify must be
// MySQL-dialect: identifiers quoted with backticks, not bracket quoting.
// Text that other dialects would accept is a parse error here, and parse
// errors are rejections.
package classifier

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/TFMV/warden/pkg/errors"
)

// Classification is the result of classifying one SQL fragment. It is
// derived state: recomputed per query, never cached across requests.
type Classification struct {
	// ReadOnly is true iff every top-level statement is a SELECT.
	ReadOnly bool
	// Statements is the number of top-level statements in the fragment.
	Statements int
	// Offending lists the statement kinds that flipped ReadOnly to false.
	Offending []string
}

// Classifier gates ad-hoc SQL text. It is stateless and safe for
// concurrent use.
type Classifier struct{}

// New creates a new read-only classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify parses sql into its top-level statement list and classifies the
// whole fragment. A fragment is read-only iff every statement is a SELECT;
// the walk is exhaustive over the full list so a batched
// "SELECT ...; DELETE ..." is rejected even though its first statement looks
// safe. Any lexical or syntax error is returned as a PARSE_ERROR, never
// treated as safe. A fragment with zero statements is also a PARSE_ERROR:
// there is nothing worth returning to the caller, and fail-closed governs.
func (c *Classifier) Classify(sql string) (Classification, error) {
	pieces, err := sqlparser.SplitStatementToPieces(sql)
	if err != nil {
		return Classification{}, errors.Wrap(err, errors.CodeParseError, "failed to split SQL text")
	}

	result := Classification{ReadOnly: true}
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		stmt, err := sqlparser.Parse(piece)
		if err != nil {
			return Classification{}, errors.Wrap(err, errors.CodeParseError, "failed to parse SQL statement")
		}
		result.Statements++
		if !isSelect(stmt) {
			result.ReadOnly = false
			result.Offending = append(result.Offending, statementKind(stmt))
		}
	}

	if result.Statements == 0 {
		return Classification{}, errors.New(errors.CodeParseError, "SQL text contains no statements")
	}
	return result, nil
}

// isSelect reports whether stmt is a SELECT variant. Unions and
// parenthesized selects are SELECT in the grammar; everything else,
// including statement kinds this package has never heard of, is not.
func isSelect(stmt sqlparser.Statement) bool {
	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		return true
	default:
		return false
	}
}

// statementKind names a statement type for logs and error details.
func statementKind(stmt sqlparser.Statement) string {
	switch stmt.(type) {
	case *sqlparser.Insert:
		return "INSERT"
	case *sqlparser.Update:
		return "UPDATE"
	case *sqlparser.Delete:
		return "DELETE"
	case *sqlparser.DDL:
		return "DDL"
	case *sqlparser.DBDDL:
		return "DDL"
	case *sqlparser.Set:
		return "SET"
	case *sqlparser.Use:
		return "USE"
	case *sqlparser.Show:
		return "SHOW"
	case *sqlparser.Begin:
		return "BEGIN"
	case *sqlparser.Commit:
		return "COMMIT"
	case *sqlparser.Rollback:
		return "ROLLBACK"
	case *sqlparser.OtherRead:
		return "OTHER_READ"
	case *sqlparser.OtherAdmin:
		return "OTHER_ADMIN"
	default:
		return fmt.Sprintf("%T", stmt)
	}
}
