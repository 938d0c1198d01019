package progress

import (
	"errors"

	"github.com/JakeFAU/tally/pkg/counter"
)

// Do opens a Monitor, hands its counter to fn, and closes the Monitor exactly
// once when fn returns or panics. A panic is re-raised after Close. The
// result joins fn's error with Close's.
func Do(cfg Config, fn func(counter.Handle) error) (err error) {
	m, err := Open(cfg)
	if err != nil {
		return err
	}
	return m.Scope(func(m *Monitor) error {
		return fn(m.Handle())
	})
}

// Scope runs fn with m and closes m afterwards, including when fn panics.
func (m *Monitor) Scope(fn func(*Monitor) error) (err error) {
	defer func() {
		cerr := m.Close()
		if r := recover(); r != nil {
			panic(r)
		}
		err = errors.Join(err, cerr)
	}()
	return fn(m)
}
