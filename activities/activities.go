package activities

import (
	"net/http"
	"strings"
)

// Activities is the receiver for the gateway activities. Each method is one
// request/response call against the document or fiscal backend. The gateway
// never retries or caches; workflows register these activities with a
// single attempt.
//
// The zero value is usable in workflow tests where every activity is mocked.
type Activities struct {
	HTTPClient       *http.Client
	FiscalBaseURL    string
	DocumentsBaseURL string
	Metrics          *GatewayMetrics
}

// New returns activities bound to the two backend base URLs.
func New(client *http.Client, fiscalBaseURL, documentsBaseURL string, metrics *GatewayMetrics) *Activities {
	return &Activities{
		HTTPClient:       client,
		FiscalBaseURL:    strings.TrimRight(fiscalBaseURL, "/"),
		DocumentsBaseURL: strings.TrimRight(documentsBaseURL, "/"),
		Metrics:          metrics,
	}
}

func (a *Activities) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return http.DefaultClient
}
