package rpcclient

import (
	"errors"
	"fmt"
	"strings"
)

// URLSchemePreference defines URL scheme preferences for RPC connections.
type URLSchemePreference int

const (
	URLSchemePreferenceNone URLSchemePreference = iota
	URLSchemePreferenceWS
	URLSchemePreferenceHTTP
)

// String returns the configuration representation of the preference.
func (u URLSchemePreference) String() string {
	switch u {
	case URLSchemePreferenceWS:
		return "ws"
	case URLSchemePreferenceHTTP:
		return "http"
	case URLSchemePreferenceNone:
		return "none"
	default:
		return fmt.Sprintf("URLSchemePreference(%d)", int(u))
	}
}

// URLSchemePreferenceFromString converts a string to URLSchemePreference. The empty string maps
// to URLSchemePreferenceNone.
func URLSchemePreferenceFromString(s string) (URLSchemePreference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ws", "wss", "websocket":
		return URLSchemePreferenceWS, nil
	case "http", "https":
		return URLSchemePreferenceHTTP, nil
	case "", "none":
		return URLSchemePreferenceNone, nil
	default:
		return URLSchemePreferenceNone, fmt.Errorf("invalid URL scheme preference: %q", s)
	}
}

// RPC represents a single RPC endpoint configuration.
type RPC struct {
	Name               string
	WSURL              string
	HTTPURL            string
	PreferredURLScheme URLSchemePreference
}

// ToEndpoint returns the URL to dial for the RPC. The preferred scheme wins when its URL is set,
// otherwise the other URL is used, HTTP first.
func (r RPC) ToEndpoint() (string, error) {
	switch r.PreferredURLScheme {
	case URLSchemePreferenceWS:
		if r.WSURL != "" {
			return r.WSURL, nil
		}
	case URLSchemePreferenceHTTP:
		if r.HTTPURL != "" {
			return r.HTTPURL, nil
		}
	case URLSchemePreferenceNone:
	}

	if r.HTTPURL != "" {
		return r.HTTPURL, nil
	}
	if r.WSURL != "" {
		return r.WSURL, nil
	}

	return "", errors.New("no URL set for RPC " + r.Name)
}

// RPCConfig is a configuration for a chain.
// It contains a chain selector and a list of RPCs
type RPCConfig struct {
	ChainSelector uint64
	RPCs          []RPC
}
