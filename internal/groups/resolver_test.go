package groups

import (
	"testing"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
)

func testGroups() []*infraBQ.GroupRow {
	return []*infraBQ.GroupRow{
		{
			GroupID:   "g-nicos",
			GroupName: "三菱UFJニコス",
			Brands:    []string{"VISA", "Mastercard"},
			SortOrder: 1,
		},
		{
			GroupID:   "g-jcb",
			GroupName: "JCBグループ",
			Brands:    []string{"JCB", "AMEX", "Diners"},
			SortOrder: 2,
		},
		{
			GroupID:   "g-dup",
			GroupName: "重複グループ",
			Brands:    []string{"VISA"},
			SortOrder: 3,
		},
	}
}

func TestResolverResolve(t *testing.T) {
	r := NewResolver(testGroups())

	tests := []struct {
		name  string
		brand string
		want  string
	}{
		{"grouped brand", "VISA", "三菱UFJニコス"},
		{"grouped brand in second group", "AMEX", "JCBグループ"},
		{"alias resolves before lookup", "ビザ", "三菱UFJニコス"},
		{"halfwidth kana alias", "ﾏｽﾀｰ", "三菱UFJニコス"},
		{"ungrouped brand passes through", "PayPay", "PayPay"},
		{"ungrouped alias still canonicalized", "ペイペイ", "PayPay"},
		{"empty brand maps to placeholder", "", UnknownBrand},
		{"whitespace-only brand maps to placeholder", "  ", UnknownBrand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.brand); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.brand, got, tt.want)
			}
		})
	}
}

func TestResolverFirstGroupWinsOnDuplicateBrand(t *testing.T) {
	r := NewResolver(testGroups())
	if got := r.Resolve("VISA"); got != "三菱UFJニコス" {
		t.Errorf("duplicate brand resolved to %q, want first group 三菱UFJニコス", got)
	}
}

func TestResolverEmptyConfiguration(t *testing.T) {
	r := NewResolver(nil)
	if got := r.Resolve("JCB"); got != "JCB" {
		t.Errorf("Resolve with no groups = %q, want raw brand JCB", got)
	}
	if got := r.Resolve(""); got != UnknownBrand {
		t.Errorf("Resolve(\"\") with no groups = %q, want %q", got, UnknownBrand)
	}
}
