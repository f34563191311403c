package currency

import "strings"

// Code is an ISO 4217 currency code.
type Code string

const (
	USD Code = "USD"
	GBP Code = "GBP"
	EUR Code = "EUR"
	ILS Code = "ILS"
)

// suffixes maps exchange ticker suffixes to the currency the venue quotes in.
var suffixes = map[string]Code{
	".L":  GBP, // London
	".TA": ILS, // Tel Aviv
	".PA": EUR, // Paris
	".DE": EUR, // Frankfurt/Xetra
	".AS": EUR, // Amsterdam
	".MI": EUR, // Milan
}

// Infer maps a ticker's exchange suffix to its quote currency.
// Unknown or missing suffixes default to USD.
func Infer(symbol string) Code {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.LastIndex(s, "."); i >= 0 {
		if c, ok := suffixes[s[i:]]; ok {
			return c
		}
	}
	return USD
}
