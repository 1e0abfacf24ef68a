package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

type newRelicContextKey struct{}

// NewRelicContextKey is the context key under which the New Relic application
// is stored.
var NewRelicContextKey = newRelicContextKey{}

// WithApplication returns a context carrying the New Relic application, which
// enables the Record* functions. A nil app returns ctx unchanged.
func WithApplication(ctx context.Context, app *newrelic.Application) context.Context {
	if app == nil {
		return ctx
	}
	return context.WithValue(ctx, NewRelicContextKey, app)
}

// StartTransaction starts a background transaction when ctx carries an
// application, so that TraceMethodCall segments have a parent. The returned
// func ends the transaction, noticing err when non-nil. Without an
// application ctx is returned unchanged and the func does nothing.
func StartTransaction(ctx context.Context, name string) (context.Context, func(err error)) {
	nr, ok := application(ctx)
	if !ok {
		return ctx, func(error) {}
	}

	txn := nr.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), func(err error) {
		if err != nil {
			txn.NoticeError(err)
		}
		txn.End()
	}
}

func application(ctx context.Context) (*newrelic.Application, bool) {
	nr, ok := ctx.Value(NewRelicContextKey).(*newrelic.Application)
	return nr, ok && nr != nil
}
