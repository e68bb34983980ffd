package deeplink

import (
	"net/url"
	"strings"
)

// matchers are tried in order; the first that claims a URL wins. The order
// is load-bearing because the patterns overlap (a profile link also has a
// bare path segment, a legacy oauth URL has no query params at all).
var matchers = []func(raw string, u *url.URL) (Intent, bool){
	matchOAuthCallback,
	matchProfile,
	matchSetup,
	matchLegacyOAuth,
	matchActivate,
}

// Parse resolves a URL into exactly one Intent. Malformed and unmatched URLs
// come back as Unrecognized; parsing never fails.
func Parse(raw string) Intent {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Unrecognized{URL: raw}
	}
	for _, m := range matchers {
		if it, ok := m(raw, u); ok {
			return it
		}
	}
	return Unrecognized{URL: raw}
}

// segs splits the path into clean segments. For custom schemes the URL host
// is really the first path segment ("ringtap://profile/abc" parses with
// Host "profile"), so callers match on host separately.
func segs(u *url.URL) []string {
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchOAuthCallback(_ string, u *url.URL) (Intent, bool) {
	s := segs(u)
	callback := (u.Host == "oauth" && len(s) >= 1 && s[0] == "callback") ||
		(len(s) >= 2 && s[0] == "oauth" && s[1] == "callback")
	if !callback {
		return nil, false
	}
	q := u.Query()
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		// callback shape without exchange params; claimed but not navigable
		return Unrecognized{URL: u.String()}, true
	}
	return OAuthCallback{Code: code, State: state}, true
}

func matchProfile(_ string, u *url.URL) (Intent, bool) {
	if id, ok := hostOrPathID(u, "profile"); ok {
		return ProfileOpen{ProfileID: id}, true
	}
	return nil, false
}

func matchSetup(_ string, u *url.URL) (Intent, bool) {
	if id, ok := hostOrPathID(u, "setup"); ok {
		return RingSetup{SetupID: id}, true
	}
	return nil, false
}

// hostOrPathID matches "<scheme>://<name>/<id>" (name lands in Host) and
// "/<name>/<id>" path forms, leading slash optional.
func hostOrPathID(u *url.URL, name string) (string, bool) {
	s := segs(u)
	if u.Host == name && len(s) >= 1 && s[0] != "" {
		return s[0], true
	}
	if len(s) >= 2 && s[0] == name && s[1] != "" {
		return s[1], true
	}
	return "", false
}

func matchLegacyOAuth(raw string, u *url.URL) (Intent, bool) {
	combined := strings.Trim(u.Host+"/"+strings.Trim(u.Path, "/"), "/")
	has := func(marker string) bool {
		return strings.Contains(raw, marker) || strings.Contains(combined, marker)
	}
	switch {
	case has("oauth/success"):
		return OAuthLegacyResult{OK: true}, true
	case has("oauth/error"):
		return OAuthLegacyResult{OK: false, Error: u.Query().Get("error")}, true
	}
	return nil, false
}

func matchActivate(_ string, u *url.URL) (Intent, bool) {
	q := u.Query()
	// values come back URL-decoded exactly, no extra trimming
	if v := q.Get("r"); v != "" {
		return RingActivate{RingID: v}, true
	}
	if v := q.Get("uid"); v != "" {
		return RingActivate{RingID: v}, true
	}
	return nil, false
}
