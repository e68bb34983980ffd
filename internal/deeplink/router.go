package deeplink

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Navigator performs a navigation action in the app shell.
type Navigator interface {
	Navigate(n Navigation)
}

// OAuthExchanger performs the OAuth authorization-code exchange.
type OAuthExchanger interface {
	Exchange(ctx context.Context, code, state string) error
}

// Router resolves URL events into navigation actions. It holds no state
// between dispatches, so dispatching the same URL twice produces the same
// action twice.
type Router struct {
	nav   Navigator
	oauth OAuthExchanger
	log   *zap.Logger
	wg    sync.WaitGroup
}

// NewRouter constructs a router. oauth may be nil when no exchange backend
// is configured; callback intents then navigate without exchanging.
func NewRouter(nav Navigator, oauth OAuthExchanger, log *zap.Logger) *Router {
	return &Router{nav: nav, oauth: oauth, log: log}
}

// Consume drains URL events until the channel closes or ctx is cancelled.
// Cancelling ctx is the unsubscribe: no event is acted on after it fires.
func (r *Router) Consume(ctx context.Context, urls <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-urls:
			if !ok {
				return
			}
			r.Dispatch(ctx, raw)
		}
	}
}

// Dispatch resolves one URL and issues at most one navigation action,
// returning the action taken (nil for unrecognized URLs). The OAuth exchange
// is fired on its own goroutine and never gates navigation: the user must
// land on the connect screen even while the exchange is pending or failing.
func (r *Router) Dispatch(ctx context.Context, raw string) Navigation {
	var n Navigation
	switch it := Parse(raw).(type) {
	case OAuthCallback:
		r.exchangeAsync(ctx, it.Code, it.State)
		n = NavigateCalendlyConnect{}
	case ProfileOpen:
		n = NavigateProfile{ProfileID: it.ProfileID}
	case RingSetup:
		n = NavigateSetup{SetupID: it.SetupID}
	case RingActivate:
		n = NavigateActivate{RingID: it.RingID}
	case OAuthLegacyResult:
		if !it.OK {
			r.log.Info("oauth redirect reported error", zap.String("error", it.Error))
		}
		n = NavigateCalendlyConnect{}
	case Unrecognized:
		r.log.Debug("ignoring unrecognized url", zap.String("url", raw))
		return nil
	}
	r.nav.Navigate(n)
	return n
}

// exchangeAsync runs the code exchange detached from the dispatch lifetime.
// Errors are logged and swallowed here; the connect screen reports failure.
func (r *Router) exchangeAsync(ctx context.Context, code, state string) {
	if r.oauth == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.oauth.Exchange(context.WithoutCancel(ctx), code, state); err != nil {
			r.log.Warn("oauth exchange failed", zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight exchanges finish. Used on shutdown and in tests.
func (r *Router) Wait() { r.wg.Wait() }
