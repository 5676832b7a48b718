// Package groups maps raw card brand strings to the payee groups they settle
// through. Brands outside every group aggregate under their own name, and an
// empty brand falls back to a fixed placeholder so those rows stay visible.
package groups

import (
	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/normalize"
)

// UnknownBrand is the bucket for transactions whose card brand could not be
// read from the slip.
const UnknownBrand = "不明"

// Resolver answers "which payee does this brand settle through" from a loaded
// group configuration. It is immutable after construction; rebuild it when
// groups change.
type Resolver struct {
	byBrand map[string]string
}

// NewResolver builds a Resolver from the configured payee groups. When the
// same brand appears in several groups the first group in sort order wins.
func NewResolver(rows []*infraBQ.GroupRow) *Resolver {
	byBrand := make(map[string]string)
	for _, g := range rows {
		for _, b := range g.Brands {
			key := normalize.Text(b)
			if key == "" {
				continue
			}
			if _, ok := byBrand[key]; !ok {
				byBrand[key] = g.GroupName
			}
		}
	}
	return &Resolver{byBrand: byBrand}
}

// Resolve returns the payee group name for a raw card brand string. The brand
// is normalized before lookup. Unmatched brands come back unchanged and an
// empty brand resolves to UnknownBrand.
func (r *Resolver) Resolve(rawBrand string) string {
	brand := normalize.CardBrand(rawBrand)
	if brand == "" {
		return UnknownBrand
	}
	if name, ok := r.byBrand[brand]; ok {
		return name
	}
	return brand
}
