package audit

import "context"

// Request and actor details are resolved at the HTTP edge and carried through
// internal layers on the context so domain services need no transport types.

type requestKey struct{}
type actorKey struct{}

func WithRequest(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestKey{}, info)
}

func RequestFromContext(ctx context.Context) RequestInfo {
	if v, ok := ctx.Value(requestKey{}).(RequestInfo); ok {
		return v
	}
	return RequestInfo{}
}

func WithActor(ctx context.Context, a Actor) context.Context {
	if a.Type == "" {
		a.Type = ActorUser
	}
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext falls back to SystemActor.
func ActorFromContext(ctx context.Context) Actor {
	if v, ok := ctx.Value(actorKey{}).(Actor); ok && v.ID != "" {
		return v
	}
	return SystemActor
}
