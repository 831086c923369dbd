// Package enrichment resolves firmographic data for leads from external
// data vendors. Providers are tried in order until one returns a match.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrAllProvidersFailed reports that every configured provider errored.
// Unlike a (nil, nil) miss, the lookup result is unknown: no vendor got to
// answer, so callers may retry later.
var ErrAllProvidersFailed = errors.New("all enrichment providers failed")

// Profile is the normalized result of a provider lookup
type Profile struct {
	Company   string
	Website   string
	Industry  string
	Employees int
	Provider  string
}

// Provider looks up a company profile by email domain. Returning (nil, nil)
// means the provider had no match; the chain moves on.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, domain string) (*Profile, error)
}

// Chain tries providers in configured order. A provider error is logged and
// the chain moves on so one flaky vendor cannot block enrichment; only when
// every provider errors does Lookup surface ErrAllProvidersFailed.
type Chain struct {
	providers []Provider
}

// NewChain creates a provider chain
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Lookup resolves the first matching profile across the chain. (nil, nil)
// means at least one provider answered and none had a match.
func (c *Chain) Lookup(ctx context.Context, domain string) (*Profile, error) {
	if domain == "" {
		return nil, fmt.Errorf("empty domain")
	}

	failed := 0
	for _, p := range c.providers {
		profile, err := p.Lookup(ctx, domain)
		if err != nil {
			log.Printf("⚠️ Enrichment provider %s failed for %s: %v", p.Name(), domain, err)
			failed++
			continue
		}
		if profile != nil {
			profile.Provider = p.Name()
			return profile, nil
		}
	}
	if failed > 0 && failed == len(c.providers) {
		return nil, fmt.Errorf("lookup %s: %w", domain, ErrAllProvidersFailed)
	}
	return nil, nil
}
