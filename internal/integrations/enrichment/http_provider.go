package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPProvider calls a vendor's company-lookup endpoint. All three supported
// vendors (clearbit, apollo, zoominfo) expose the same minimal shape once
// normalized, so one client covers them; NewClearbit etc. differ only in
// base URL and auth header.
type HTTPProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

type lookupResponse struct {
	Name      string `json:"name"`
	Domain    string `json:"domain"`
	Industry  string `json:"industry"`
	Employees int    `json:"employees"`
}

func newHTTPProvider(name, baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClearbit creates the clearbit company API provider
func NewClearbit(apiKey string) *HTTPProvider {
	return newHTTPProvider("clearbit", "https://company.clearbit.com/v2/companies/find", apiKey)
}

// NewApollo creates the apollo.io organization API provider
func NewApollo(apiKey string) *HTTPProvider {
	return newHTTPProvider("apollo", "https://api.apollo.io/v1/organizations/enrich", apiKey)
}

// NewZoomInfo creates the zoominfo company API provider
func NewZoomInfo(apiKey string) *HTTPProvider {
	return newHTTPProvider("zoominfo", "https://api.zoominfo.com/lookup/company", apiKey)
}

func (p *HTTPProvider) Name() string {
	return p.name
}

// Lookup queries the vendor. 404 means no match, not an error.
func (p *HTTPProvider) Lookup(ctx context.Context, domain string) (*Profile, error) {
	if p.apiKey == "" {
		return nil, nil // Provider not configured, skip
	}

	reqURL := fmt.Sprintf("%s?domain=%s", p.baseURL, url.QueryEscape(domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", p.name, resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}

	if body.Name == "" {
		return nil, nil
	}

	return &Profile{
		Company:   body.Name,
		Website:   body.Domain,
		Industry:  body.Industry,
		Employees: body.Employees,
	}, nil
}
