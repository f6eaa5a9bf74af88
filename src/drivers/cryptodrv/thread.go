package cryptodrv

import "context"

// Thread is the identity of a logical caller.  Arbitration compares
// priorities; a larger number is more urgent.
type Thread struct {
	ID       uint32
	Priority int
}

type threadKey struct{}

// WithThread returns a context that carries t.
func WithThread(ctx context.Context, t Thread) context.Context {
	return context.WithValue(ctx, threadKey{}, t)
}

// ThreadFromContext returns the thread carried by ctx, or the zero Thread
// (ID 0, priority 0) when there is none.
func ThreadFromContext(ctx context.Context) Thread {
	if ctx == nil {
		return Thread{}
	}
	t, _ := ctx.Value(threadKey{}).(Thread)
	return t
}
