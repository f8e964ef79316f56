package connectivity

import (
	"fmt"
	"net"
	"net/http"
)

// Transport is an http.RoundTripper that consults a State before every
// request. While the simulate-offline override is active, any request to a
// non-loopback host fails at the transport layer; loopback traffic (test
// servers) passes through so reconciliation tests keep working.
type Transport struct {
	State *State
	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// NewTransport wraps the default transport with the given state.
func NewTransport(state *State) *Transport {
	return &Transport{State: state}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.State != nil && t.State.SimulatingOffline() && !isLoopback(req.URL.Hostname()) {
		return nil, fmt.Errorf("connectivity: simulated offline, refusing request to %s", req.URL.Host)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
