package classifier

import (
	"testing"

	"github.com/TFMV/warden/pkg/errors"
)

func TestClassifier_Classify(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		sql      string
		readOnly bool
	}{
		// Single SELECT variants
		{"simple SELECT", "SELECT * FROM Orders", true},
		{"SELECT with filter", "SELECT * FROM Orders WHERE CustomerID = 'AROUT'", true},
		{"SELECT quoted table", "SELECT * FROM `Order Details` WHERE `OrderID` = '10248'", true},
		{"SELECT with JOIN", "SELECT o.OrderID, c.CompanyName FROM Orders o JOIN Customers c ON o.CustomerID = c.CustomerID", true},
		{"UNION of selects", "SELECT OrderID FROM Orders UNION SELECT OrderID FROM Invoices", true},
		{"parenthesized SELECT", "(SELECT * FROM Orders)", true},
		{"lowercase select", "select 1 from dual", true},
		{"trailing semicolon", "SELECT * FROM Orders;", true},
		{"batched selects", "SELECT * FROM Orders; SELECT * FROM Customers", true},

		// Data- and schema-modifying statements
		{"INSERT", "INSERT INTO Orders (CustomerID) VALUES ('AROUT')", false},
		{"UPDATE", "UPDATE Orders SET Freight = 0 WHERE OrderID = 10248", false},
		{"DELETE", "DELETE FROM Orders", false},
		{"DROP TABLE", "DROP TABLE Orders", false},
		{"CREATE TABLE", "CREATE TABLE t (id int)", false},
		{"SET", "SET autocommit = 1", false},

		// Batched SQL must be rejected even when the first statement is safe
		{"SELECT then DELETE", "SELECT * FROM Orders; DELETE FROM Orders", false},
		{"SELECT then DROP", "SELECT 1; DROP TABLE Orders", false},
		{"DELETE then SELECT", "DELETE FROM Orders; SELECT * FROM Orders", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := c.Classify(tt.sql)
			if err != nil {
				t.Fatalf("Classify(%q) returned error: %v", tt.sql, err)
			}
			if result.ReadOnly != tt.readOnly {
				t.Errorf("Classify(%q).ReadOnly = %v, want %v", tt.sql, result.ReadOnly, tt.readOnly)
			}
		})
	}
}

func TestClassifier_ParseErrors(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		sql  string
	}{
		{"unbalanced parens", "not valid sql ((("},
		{"garbage", "hello world"},
		{"empty string", ""},
		{"whitespace only", "   \n\t"},
		{"semicolons only", "; ;"},
		{"truncated SELECT", "SELECT * FROM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Classify(tt.sql)
			if err == nil {
				t.Fatalf("Classify(%q) expected a parse error, got none", tt.sql)
			}
			if !errors.IsParseError(err) {
				t.Errorf("Classify(%q) error code = %s, want %s", tt.sql, errors.GetCode(err), errors.CodeParseError)
			}
		})
	}
}

func TestClassifier_ExhaustiveWalk(t *testing.T) {
	c := New()

	// The whole statement list is inspected, not just the first offender.
	result, err := c.Classify("SELECT 1; DELETE FROM Orders; DROP TABLE Orders")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.ReadOnly {
		t.Fatal("batched write statements classified as read-only")
	}
	if result.Statements != 3 {
		t.Errorf("Statements = %d, want 3", result.Statements)
	}
	if len(result.Offending) != 2 {
		t.Errorf("Offending = %v, want two entries", result.Offending)
	}
}

func BenchmarkClassifier_Classify(b *testing.B) {
	c := New()
	queries := []string{
		"SELECT * FROM Orders",
		"SELECT * FROM Orders WHERE CustomerID = 'AROUT'",
		"SELECT * FROM Orders; DELETE FROM Orders",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Classify(queries[i%len(queries)])
	}
}
