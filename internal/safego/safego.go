// Package safego wraps goroutine launches with panic recovery so background
// work cannot take the process down.
package safego

import "log/slog"

// Go runs fn in a new goroutine, recovering and logging any panic. Use it for
// fire-and-forget work such as ticked maintenance passes, where an unrecovered
// panic would otherwise kill the process or silently end the goroutine.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "panic", r)
			}
		}()
		fn()
	}()
}
