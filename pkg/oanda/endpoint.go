// Package oanda holds the OANDA v20 endpoints and wire types shared by the
// price stream and the order sink.
package oanda

import (
	"strings"
)

const (
	DomainPractice = "practice"
	DomainLive     = "live"

	_restPractice   = "https://api-fxpractice.oanda.com"
	_restLive       = "https://api-fxtrade.oanda.com"
	_streamPractice = "https://stream-fxpractice.oanda.com"
	_streamLive     = "https://stream-fxtrade.oanda.com"
)

// RESTURL returns the REST base URL for a domain. Unknown domains fall back
// to practice.
func RESTURL(domain string) string {
	if strings.EqualFold(domain, DomainLive) {
		return _restLive
	}
	return _restPractice
}

// StreamURL returns the streaming base URL for a domain.
func StreamURL(domain string) string {
	if strings.EqualFold(domain, DomainLive) {
		return _streamLive
	}
	return _streamPractice
}

// OrdersPath is the market order endpoint for an account.
func OrdersPath(accountID string) string {
	return "/v3/accounts/" + accountID + "/orders"
}

// PricingStreamPath is the price stream endpoint for an account.
func PricingStreamPath(accountID string) string {
	return "/v3/accounts/" + accountID + "/pricing/stream"
}
