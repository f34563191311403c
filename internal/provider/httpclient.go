package provider

import "net/http"

// HTTPClient describes an HTTP client. Fetchers take this instead of a
// concrete client so tests can substitute a fake transport.
//
//go:generate mockgen -package=yahoo_test -destination=yahoo/mock_http_client_test.go -source=httpclient.go HTTPClient
//go:generate mockgen -package=alphavantage_test -destination=alphavantage/mock_http_client_test.go -source=httpclient.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
