package fetch

import "testing"

func TestRepoKeyPrefix(t *testing.T) {
	for _, tc := range []struct {
		prefix string
		repo   string
		want   string
	}{
		{"migrations", "BillingRepo", "migrations/billing_repo/migrations/"},
		{"bundles/v2", "LedgerRepo", "bundles/v2/ledger_repo/migrations/"},
		{"", "BillingRepo", "billing_repo/migrations/"},
	} {
		if got := repoKeyPrefix(tc.prefix, tc.repo); got != tc.want {
			t.Errorf("repoKeyPrefix(%q, %q) = %q, want %q", tc.prefix, tc.repo, got, tc.want)
		}
	}
}

func TestObjectFileName(t *testing.T) {
	const prefix = "migrations/billing_repo/migrations/"
	for _, tc := range []struct {
		key  string
		want string
	}{
		{prefix + "1_create_accounts.up.sql", "1_create_accounts.up.sql"},
		{prefix, ""},                          // directory marker
		{prefix + "nested/2_x.up.sql", ""},    // nested keys are skipped
		{"other/billing_repo/1_x.up.sql", ""}, // outside the prefix
		{prefix + "20240101120000_a.up.sql", "20240101120000_a.up.sql"},
	} {
		if got := objectFileName(prefix, tc.key); got != tc.want {
			t.Errorf("objectFileName(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}
