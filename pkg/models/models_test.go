package models

import (
	"testing"
)

func TestRole_String(t *testing.T) {
	tests := []struct {
		role     Role
		expected string
	}{
		{RoleUser, "user"},
		{RoleAdmin, "admin"},
		{Role(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.role.String(); got != tt.expected {
				t.Errorf("Role(%d).String() = %q, want %q", tt.role, got, tt.expected)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected Role
		wantErr  bool
	}{
		{"user", RoleUser, false},
		{"admin", RoleAdmin, false},
		{"Admin", RoleUser, true},
		{"root", RoleUser, true},
		{"", RoleUser, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, err := ParseRole(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && role != tt.expected {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.input, role, tt.expected)
			}
		})
	}
}

func TestResourceRequest_TableName(t *testing.T) {
	req := ResourceRequest{LogicalID: "Orders"}
	if got := req.TableName(); got != "Orders" {
		t.Errorf("TableName() = %q, want %q", got, "Orders")
	}

	req.Table = "Invoices"
	if got := req.TableName(); got != "Invoices" {
		t.Errorf("TableName() = %q, want %q", got, "Invoices")
	}
}

func TestQuery_Text(t *testing.T) {
	tests := []struct {
		name     string
		query    Query
		expected string
	}{
		{"ad-hoc", AdHoc{SQL: "SELECT 1"}, "SELECT 1"},
		{"procedure without params", Procedure{Name: "Ten Most Expensive Products"}, "Ten Most Expensive Products"},
		{
			"procedure with params",
			Procedure{Name: "CustOrderHist", Params: []Parameter{{Name: "@CustomerID", Value: "AROUT"}}},
			"CustOrderHist @CustomerID",
		},
		{
			"procedure with two params",
			Procedure{Name: "SalesByYear", Params: []Parameter{
				{Name: "@Beginning_Date", Value: "1996-01-01"},
				{Name: "@Ending_Date", Value: "1996-12-31"},
			}},
			"SalesByYear @Beginning_Date, @Ending_Date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Text(); got != tt.expected {
				t.Errorf("Text() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// Text never includes bound parameter values: they go to the execution
// layer, not into loggable text.
func TestProcedure_TextOmitsValues(t *testing.T) {
	proc := Procedure{Name: "CustOrderHist", Params: []Parameter{{Name: "@CustomerID", Value: "AROUT"}}}
	text := proc.Text()
	if want := "CustOrderHist @CustomerID"; text != want {
		t.Fatalf("Text() = %q, want %q", text, want)
	}
}
