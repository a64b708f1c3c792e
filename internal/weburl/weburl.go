// Package weburl holds the URL checks shared by parsers and the image resolver.
package weburl

import (
	"net/url"
	"strings"
)

// Resolve turns href into an absolute URL relative to base. It returns an
// empty string when either side cannot be parsed or the result is not http(s).
func Resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if !ref.IsAbs() {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil || !b.IsAbs() {
			return ""
		}
		ref = b.ResolveReference(ref)
	}
	if !IsAbsoluteHTTP(ref.String()) {
		return ""
	}
	return ref.String()
}

// IsAbsoluteHTTP reports whether raw is an absolute http or https URL with a host.
func IsAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Host returns the lowercased host of raw without a port or leading "www.".
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// MatchesDomain reports whether the host of raw equals one of domains or is
// a subdomain of it.
func MatchesDomain(raw string, domains []string) bool {
	host := Host(raw)
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// PathTokens splits the path and file name of raw into lowercase alphanumeric
// tokens, e.g. "/img/site-logo@2x.png" -> [img site logo 2x png].
func PathTokens(raw string) []string {
	u, err := url.Parse(raw)
	path := raw
	if err == nil {
		path = u.Path
	}
	return strings.FieldsFunc(strings.ToLower(path), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
