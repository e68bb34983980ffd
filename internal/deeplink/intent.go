// Package deeplink turns incoming URLs (custom scheme or universal link)
// into typed intents and dispatches exactly one navigation action per URL.
package deeplink

// Intent is a tagged variant derived from one incoming URL. Constructed per
// URL event, consumed immediately by the router, then discarded.
type Intent interface{ intent() }

// OAuthCallback carries the authorization code exchange parameters.
type OAuthCallback struct {
	Code  string
	State string
}

// ProfileOpen requests opening a profile by id.
type ProfileOpen struct{ ProfileID string }

// RingSetup requests the ring setup screen for a printed setup id.
type RingSetup struct{ SetupID string }

// RingActivate requests the activation screen for a tapped ring.
type RingActivate struct{ RingID string }

// OAuthLegacyResult is the old-style oauth/success / oauth/error redirect.
type OAuthLegacyResult struct {
	OK    bool
	Error string
}

// Unrecognized marks a URL that matched no pattern; it produces no navigation.
type Unrecognized struct{ URL string }

func (OAuthCallback) intent()     {}
func (ProfileOpen) intent()       {}
func (RingSetup) intent()         {}
func (RingActivate) intent()      {}
func (OAuthLegacyResult) intent() {}
func (Unrecognized) intent()      {}

// Navigation is the action the app shell performs in response to an intent.
type Navigation interface{ navigation() }

// NavigateProfile opens the profile screen for a profile id.
type NavigateProfile struct{ ProfileID string }

// NavigateSetup opens the ring setup screen.
type NavigateSetup struct{ SetupID string }

// NavigateActivate opens the activation screen with the decoded ring id.
type NavigateActivate struct{ RingID string }

// NavigateCalendlyConnect opens the Calendly connect screen. Both OAuth
// success and error collapse here; the screen re-checks connection state.
type NavigateCalendlyConnect struct{}

func (NavigateProfile) navigation()         {}
func (NavigateSetup) navigation()           {}
func (NavigateActivate) navigation()        {}
func (NavigateCalendlyConnect) navigation() {}
