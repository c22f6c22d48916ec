package nn

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Layer names must be unique within a process so that named-subcomponent
// paths are unambiguous. Auto-generated names follow the usual scheme:
// "dense", "dense_1", "dense_2", ...
var (
	nameMu       sync.Mutex
	nameCounters = map[string]int{}
)

// UniqueName returns the next auto-generated name for a prefix.
func UniqueName(prefix string) string {
	nameMu.Lock()
	defer nameMu.Unlock()
	n := nameCounters[prefix]
	nameCounters[prefix]++
	if n == 0 {
		return prefix
	}
	return fmt.Sprintf("%s_%d", prefix, n)
}

// ResetNaming clears the per-prefix counters. Intended for tests.
func ResetNaming() {
	nameMu.Lock()
	defer nameMu.Unlock()
	nameCounters = map[string]int{}
}

var seedCounter atomic.Uint64

// nextSeed hands out distinct default seeds so sibling layers do not draw
// identical weights.
func nextSeed() uint64 {
	return seedCounter.Add(1)
}

// Option configures a layer at construction.
type Option func(*options)

type options struct {
	name    string
	seed    uint64
	hasSeed bool
}

// WithName sets an explicit layer name instead of an auto-generated one.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithSeed fixes the random seed used for weight initialization.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.hasSeed = true
	}
}

func applyOptions(prefix string, opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = UniqueName(prefix)
	}
	if !o.hasSeed {
		o.seed = nextSeed()
	}
	return o
}
