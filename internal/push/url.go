package push

import (
	"fmt"
	"net/url"
	"strings"
)

// UpdatesPath is where the hub is mounted.
const UpdatesPath = "/ws/updates"

// ResolveURL returns the push endpoint. An explicit wsURL wins; otherwise the
// endpoint is derived from the store's HTTP base URL by swapping http for ws
// (https for wss) and using UpdatesPath.
func ResolveURL(apiURL, wsURL string) (string, error) {
	if wsURL = strings.TrimSpace(wsURL); wsURL != "" {
		return wsURL, nil
	}
	base, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch strings.ToLower(base.Scheme) {
	case "https":
		base.Scheme = "wss"
	case "http", "":
		base.Scheme = "ws"
	default:
		return "", fmt.Errorf("cannot derive push url from scheme %q", base.Scheme)
	}
	if base.Host == "" {
		return "", fmt.Errorf("api url %q has no host", apiURL)
	}
	base.Path = UpdatesPath
	base.RawQuery = ""
	base.Fragment = ""
	return base.String(), nil
}
