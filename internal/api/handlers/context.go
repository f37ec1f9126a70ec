package handlers

import (
	"context"
	"net/http"

	"shop-service/internal/service"
)

type callerKey struct{}

func WithCaller(ctx context.Context, caller service.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller stored by the identity middleware, or the
// zero Caller for unauthenticated requests without a cart session.
func CallerFrom(ctx context.Context) service.Caller {
	caller, _ := ctx.Value(callerKey{}).(service.Caller)
	return caller
}

func caller(r *http.Request) service.Caller {
	return CallerFrom(r.Context())
}
