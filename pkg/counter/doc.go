// Package counter provides the lock-free uint64 cell shared between progress
// producers and the monitor's poller. A Counter is allocated once and never
// moves; producers reach it through value-typed Handles that can be copied
// freely into goroutines, worker pools, or foreign-call adapters.
package counter
