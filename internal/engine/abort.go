//go:build cgo

package engine

import (
	"context"
	"runtime/cgo"
	"unsafe"
)

// shouldAbort is polled by whisper.cpp between decoder steps. It reports true
// once the request context behind userData is cancelled, which stops an
// in-flight inference early instead of letting it run to completion.
func shouldAbort(userData unsafe.Pointer) bool {
	ctx, ok := abortContext(userData)
	if !ok {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// abortContext recovers the request context from the cgo handle passed as the
// callback's user data. The handle may already be deleted when the callback
// fires during teardown; resolving it then panics, so that case is swallowed
// and treated as "do not abort".
func abortContext(userData unsafe.Pointer) (ctx context.Context, ok bool) {
	handlePtr := (*cgo.Handle)(userData)
	if handlePtr == nil || *handlePtr == 0 {
		return nil, false
	}

	defer func() {
		if recover() != nil {
			ctx, ok = nil, false
		}
	}()

	ctx, ok = handlePtr.Value().(context.Context)
	return ctx, ok
}
