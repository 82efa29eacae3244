package payment

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the app's deep-link scheme. The checkout redirects to
// pesawallet://payment/verify?reference=<ref> on mobile; the CLI accepts
// the same URL pasted by the user, or an http callback hitting the local
// listener.
const Scheme = "pesawallet"

// callbackPath is the path component of the verification callback.
const callbackPath = "/payment/verify"

// ParseCallback extracts the payment reference from a verification
// callback URL in either deep-link or http form.
func ParseCallback(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid callback URL: %w", err)
	}

	switch u.Scheme {
	case Scheme:
		// Custom schemes parse the first segment as the host:
		// pesawallet://payment/verify -> host "payment", path "/verify"
		if u.Host+u.Path != "payment/verify" {
			return "", fmt.Errorf("unexpected deep link path: %s", raw)
		}
	case "http", "https":
		if u.Path != callbackPath {
			return "", fmt.Errorf("unexpected callback path: %s", u.Path)
		}
	default:
		return "", fmt.Errorf("unexpected callback scheme: %q", u.Scheme)
	}

	reference := u.Query().Get("reference")
	if reference == "" {
		return "", fmt.Errorf("callback is missing a reference")
	}
	return reference, nil
}
