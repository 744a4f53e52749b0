package zoo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// Builder constructs the feature extractor of a backbone architecture on
// backend B. It returns the module and the width of the features it
// produces.
type Builder[B tensor.Backend] func(backend B) (nn.Module[B], int, error)

var (
	regMu    sync.RWMutex
	builders = make(map[string]any)
)

// Register makes a backbone builder available to Build under the given
// architecture name. Backbone packages call it from init.
//
// Register panics if the name is already taken.
func Register[B tensor.Backend](name string, builder Builder[B]) {
	regMu.Lock()
	defer regMu.Unlock()

	if _, ok := builders[name]; ok {
		panic("zoo: backbone already registered: " + name)
	}
	builders[name] = builder
}

// Unregister removes a backbone builder and reports whether one was
// registered.
func Unregister(name string) bool {
	regMu.Lock()
	defer regMu.Unlock()

	_, ok := builders[name]
	delete(builders, name)
	return ok
}

// Registered reports whether a backbone builder exists under name.
func Registered(name string) bool {
	regMu.RLock()
	defer regMu.RUnlock()

	_, ok := builders[name]
	return ok
}

// RegisteredNames returns the names of all registered backbones in sorted
// order.
func RegisteredNames() []string {
	regMu.RLock()
	defer regMu.RUnlock()

	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// builderFor resolves the builder registered under name for backend B.
func builderFor[B tensor.Backend](name string) (Builder[B], error) {
	regMu.RLock()
	v, ok := builders[name]
	regMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("zoo: no backbone registered under %q", name)
	}
	builder, ok := v.(Builder[B])
	if !ok {
		return nil, fmt.Errorf("zoo: backbone %q is registered for a different backend", name)
	}
	return builder, nil
}
