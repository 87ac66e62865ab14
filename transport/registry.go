package transport

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// openTargets tracks the devices currently open in this process.
var openTargets = xsync.NewMapOf[string, struct{}]()

// acquire reserves target, failing with ErrPortBusy if it is already held.
func acquire(target string) error {
	if _, loaded := openTargets.LoadOrStore(target, struct{}{}); loaded {
		return fmt.Errorf("transport: %w: %s", ErrPortBusy, target)
	}

	return nil
}

func release(target string) {
	openTargets.Delete(target)
}

// IsOpen reports whether target is held by a transport in this process.
func IsOpen(target string) bool {
	_, ok := openTargets.Load(target)
	return ok
}
