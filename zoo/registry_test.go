package zoo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-ml/shift/internal/backend/cpu"
	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// linearBuilder returns a Builder whose "backbone" is a single Linear
// layer, which is enough structure to exercise the registry and Build.
func linearBuilder(features, dim int) Builder[*cpu.CPUBackend] {
	return func(backend *cpu.CPUBackend) (nn.Module[*cpu.CPUBackend], int, error) {
		return nn.NewLinear(features, dim, backend), dim, nil
	}
}

func TestRegisterAndLookupBuilder(t *testing.T) {
	Register("test-backbone", linearBuilder(4, 16))
	defer Unregister("test-backbone")

	assert.True(t, Registered("test-backbone"))
	assert.Contains(t, RegisteredNames(), "test-backbone")

	builder, err := builderFor[*cpu.CPUBackend]("test-backbone")
	require.NoError(t, err)

	module, dim, err := builder(cpu.New())
	require.NoError(t, err)
	assert.Equal(t, 16, dim)
	assert.Len(t, module.Parameters(), 2)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("test-dup", linearBuilder(4, 16))
	defer Unregister("test-dup")

	assert.Panics(t, func() {
		Register("test-dup", linearBuilder(4, 16))
	})
}

func TestUnregister(t *testing.T) {
	Register("test-gone", linearBuilder(4, 16))

	assert.True(t, Unregister("test-gone"))
	assert.False(t, Unregister("test-gone"))
	assert.False(t, Registered("test-gone"))
}

func TestBuilderForMissing(t *testing.T) {
	_, err := builderFor[*cpu.CPUBackend]("test-missing")
	assert.ErrorContains(t, err, "no backbone registered")
}

func TestBuilderForWrongBackend(t *testing.T) {
	Register("test-cpu-only", linearBuilder(4, 16))
	defer Unregister("test-cpu-only")

	_, err := builderFor[*tensor.MockBackend]("test-cpu-only")
	assert.ErrorContains(t, err, "different backend")
}
