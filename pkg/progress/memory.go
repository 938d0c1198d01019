package progress

import (
	"fmt"
	"sync"

	"github.com/JakeFAU/tally/pkg/counter"
)

// Allocator provides the backing cell for a Monitor's counter. The returned
// Counter must stay valid and unmoved until the Monitor is closed.
type Allocator interface {
	Allocate() (*counter.Counter, error)
}

// AllocatorFunc adapts a function to Allocator.
type AllocatorFunc func() (*counter.Counter, error)

// Allocate calls f.
func (f AllocatorFunc) Allocate() (*counter.Counter, error) {
	return f()
}

var (
	allocMu    sync.RWMutex
	allocators = map[Memory]Allocator{
		MemoryHost: AllocatorFunc(func() (*counter.Counter, error) {
			return counter.New(), nil
		}),
	}
)

// RegisterAllocator installs the allocator used for mem. Registering nil
// removes it. The host allocator can be replaced but not removed.
func RegisterAllocator(mem Memory, a Allocator) {
	allocMu.Lock()
	defer allocMu.Unlock()
	if a == nil {
		if mem != MemoryHost {
			delete(allocators, mem)
		}
		return
	}
	allocators[mem] = a
}

func allocate(mem Memory) (*counter.Counter, error) {
	allocMu.RLock()
	a, ok := allocators[mem]
	allocMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no allocator registered for %s memory", ErrUnsupportedContext, mem)
	}
	c, err := a.Allocate()
	if err != nil {
		return nil, fmt.Errorf("%w: allocate %s counter: %w", ErrUnsupportedContext, mem, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s allocator returned no counter", ErrUnsupportedContext, mem)
	}
	return c, nil
}
