package harness

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKwargs(t *testing.T) {
	kw, err := ParseKwargs([]string{"n_clusters=5", "lr=1e-4", "resume=True", "tag=aux"})
	require.NoError(t, err)

	assert.Equal(t, Kwargs{
		"n_clusters": 5,
		"lr":         1e-4,
		"resume":     true,
		"tag":        "aux",
	}, kw)
}

func TestKwargsCoercion(t *testing.T) {
	tests := []struct {
		pair string
		want any
	}{
		{"a=3", 3},
		{"a=-3", -3},
		{"a=0.5", 0.5},
		{"a=1e-4", 1e-4},
		{"a=True", true},
		{"a=true", true},
		{"a=False", false},
		{"a=false", false},
		{"a=hello", "hello"},
		{"a=3x", "3x"},
	}

	for _, tc := range tests {
		t.Run(tc.pair, func(t *testing.T) {
			kw := Kwargs{}
			require.NoError(t, kw.Set(tc.pair))
			assert.Equal(t, tc.want, kw["a"])
		})
	}
}

func TestKwargsSetErrors(t *testing.T) {
	kw := Kwargs{}
	assert.Error(t, kw.Set("novalue"))
	assert.Error(t, kw.Set("=x"))
}

func TestKwargsSetOnNilMap(t *testing.T) {
	var kw Kwargs
	require.NoError(t, kw.Set("a=1"))
	assert.Equal(t, 1, kw["a"])
}

func TestKwargsString(t *testing.T) {
	kw := Kwargs{"b": 2, "a": 1, "c": "x"}
	assert.Equal(t, "a=1 b=2 c=x", kw.String())
	assert.Equal(t, "", Kwargs{}.String())
}

func TestKwargsAccessors(t *testing.T) {
	kw, err := ParseKwargs([]string{"n=5", "lr=0.1", "flag=True", "name=run"})
	require.NoError(t, err)

	n, ok := kw.Int("n")
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	// Float widens integer values.
	f, ok := kw.Float("n")
	assert.True(t, ok)
	assert.Equal(t, 5.0, f)

	f, ok = kw.Float("lr")
	assert.True(t, ok)
	assert.Equal(t, 0.1, f)

	b, ok := kw.Bool("flag")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = kw.Int("name")
	assert.False(t, ok)
	_, ok = kw.Int("absent")
	assert.False(t, ok)
}

func TestKwargsIntNarrowsJSONNumbers(t *testing.T) {
	// Numbers decoded from a JSON config arrive as float64.
	kw := Kwargs{"n_clusters": 10.0, "mix_ratio": 0.5}

	n, ok := kw.Int("n_clusters")
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	_, ok = kw.Int("mix_ratio")
	assert.False(t, ok)
}

func TestKwargsAsFlagValue(t *testing.T) {
	kw := Kwargs{}
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Var(&kw, "kwargs", "extra key=value settings")

	require.NoError(t, fs.Parse([]string{"-kwargs", "n_clusters=5", "-kwargs", "resume=True"}))
	assert.Equal(t, Kwargs{"n_clusters": 5, "resume": true}, kw)

	assert.Error(t, fs.Parse([]string{"-kwargs", "broken"}))
}
