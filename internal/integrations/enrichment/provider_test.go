package enrichment

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubProvider struct {
	name    string
	profile *Profile
	err     error
	calls   int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Lookup(ctx context.Context, domain string) (*Profile, error) {
	s.calls++
	return s.profile, s.err
}

func TestChainFirstMatchWins(t *testing.T) {
	first := &stubProvider{name: "first", profile: &Profile{Company: "Acme"}}
	second := &stubProvider{name: "second", profile: &Profile{Company: "Other"}}

	chain := NewChain(first, second)
	profile, err := chain.Lookup(context.Background(), "acme.com")

	assert.NoError(t, err)
	assert.Equal(t, "Acme", profile.Company)
	assert.Equal(t, "first", profile.Provider)
	assert.Equal(t, 0, second.calls, "second provider should not be called")
}

func TestChainFallsThroughOnMissAndError(t *testing.T) {
	failing := &stubProvider{name: "failing", err: fmt.Errorf("timeout")}
	miss := &stubProvider{name: "miss"}
	hit := &stubProvider{name: "hit", profile: &Profile{Company: "Acme"}}

	chain := NewChain(failing, miss, hit)
	profile, err := chain.Lookup(context.Background(), "acme.com")

	assert.NoError(t, err)
	assert.NotNil(t, profile)
	assert.Equal(t, "hit", profile.Provider)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, miss.calls)
}

func TestChainAllProvidersFailed(t *testing.T) {
	first := &stubProvider{name: "first", err: fmt.Errorf("timeout")}
	second := &stubProvider{name: "second", err: fmt.Errorf("503")}

	chain := NewChain(first, second)
	profile, err := chain.Lookup(context.Background(), "acme.com")

	assert.Nil(t, profile)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestChainNoMatch(t *testing.T) {
	chain := NewChain(&stubProvider{name: "miss"})
	profile, err := chain.Lookup(context.Background(), "unknown.example")

	assert.NoError(t, err)
	assert.Nil(t, profile)
}

func TestChainEmptyDomain(t *testing.T) {
	chain := NewChain(&stubProvider{name: "any"})
	_, err := chain.Lookup(context.Background(), "")
	assert.Error(t, err)
}

func TestUnconfiguredHTTPProviderSkips(t *testing.T) {
	p := NewClearbit("")
	profile, err := p.Lookup(context.Background(), "acme.com")
	assert.NoError(t, err)
	assert.Nil(t, profile)
}
