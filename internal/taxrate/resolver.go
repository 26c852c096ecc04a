package taxrate

import (
	"context"
	"log"
	"strings"
)

// Resolver picks the ZIP to use and never fails: a lookup error is
// logged and reported as a zero rate.
type Resolver struct {
	lookup Lookup
	logger *log.Logger
}

// NewResolver returns a resolver over lookup.  A nil lookup always
// resolves to 0.
func NewResolver(lookup Lookup, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// PickZip returns the first non-blank candidate.  Callers pass them in
// priority order: manual entry, card billing ZIP, profile ZIP.
func PickZip(candidates ...string) string {
	for _, z := range candidates {
		if z = strings.TrimSpace(z); z != "" {
			return z
		}
	}
	return ""
}

// Resolve looks up the rate for the chosen ZIP and returns it together
// with the ZIP that was used.
func (r *Resolver) Resolve(ctx context.Context, candidates ...string) (rate float64, zip string) {
	zip = PickZip(candidates...)
	if zip == "" || r.lookup == nil {
		return 0, zip
	}
	rate, err := r.lookup.Rate(ctx, zip)
	if err != nil {
		r.logger.Printf("taxrate: lookup for %q failed, using 0: %v", zip, err)
		return 0, zip
	}
	return rate, zip
}
