// Package progress implements the progress monitor: a shared atomic counter
// that any number of goroutines increment without locks, observed by a single
// background poller that forwards changes to a Renderer.
//
// A Monitor is opened with Open and must be closed with Close. Close stops the
// poller, waits for it to exit, performs one last synchronous flush so the
// display matches the true count, and finalizes the Renderer. Do wraps the
// open/close pair for scoped use:
//
//	err := progress.Do(cfg, func(h counter.Handle) error {
//	    for i := 0; i < n; i++ {
//	        work(i)
//	        h.Increment(1)
//	    }
//	    return nil
//	})
//
// Producers that only hold a counter.Handle never touch the Renderer; the
// poller picks their updates up on its next wake. Monitor.Increment and
// Monitor.Set additionally refresh the display in-line and report renderer
// failures to the caller.
package progress
