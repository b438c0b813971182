package obs

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

var debug atomic.Bool

// SetDebug toggles debug-level logging; off until the caller enables it
func SetDebug(on bool) { debug.Store(on) }

// DebugEnabled reports whether debug-level logging is on
func DebugEnabled() bool { return debug.Load() }

// Debugf logs only when debug logging is enabled
func Debugf(format string, args ...any) {
	if debug.Load() {
		log.Printf("debug: "+format, args...)
	}
}

// Time logs the duration of an operation; call the returned func with a pointer to the
// operation's error, usually from a defer.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		if !debug.Load() {
			return
		}
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("req_id=%s op=%s dur=%dms err=%v", reqID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("req_id=%s op=%s dur=%dms", reqID, name, dur.Milliseconds())
	}
}
