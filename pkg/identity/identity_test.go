package identity

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"customer", RoleCustomer, false},
		{"ASSOCIATE", RoleAssociate, false},
		{"  hr  ", RoleHR, false},
		{"Leadership", RoleLeadership, false},
		{"vendor", RoleVendor, false},
		{"admin", "", true},
		{"", "", true},
		{"customer role", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRole(%q) accepted an unknown role", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRole(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	id, err := New("  acme  ", "Customer")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if id.TenantID != "acme" || id.Role != RoleCustomer {
		t.Errorf("got %+v, want trimmed tenant and normalized role", id)
	}

	for _, tc := range []struct{ tenant, role string }{
		{"", "customer"},
		{"   ", "customer"},
		{"acme", ""},
		{"acme", "superuser"},
	} {
		if _, err := New(tc.tenant, tc.role); !errors.Is(err, ErrMissingTenantOrRole) {
			t.Errorf("New(%q, %q) = %v, want ErrMissingTenantOrRole", tc.tenant, tc.role, err)
		}
	}
}

func TestValidate(t *testing.T) {
	good := Identity{TenantID: "acme", Role: RoleVendor}
	if err := good.Validate(); err != nil {
		t.Errorf("Validate on a well-formed identity: %v", err)
	}

	bad := []Identity{
		{TenantID: "", Role: RoleVendor},
		{TenantID: "acme", Role: Role("root")},
		{},
	}
	for _, id := range bad {
		if err := id.Validate(); !errors.Is(err, ErrMissingTenantOrRole) {
			t.Errorf("Validate(%+v) = %v, want ErrMissingTenantOrRole", id, err)
		}
	}
}
