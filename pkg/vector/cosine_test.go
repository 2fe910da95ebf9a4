package vector

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

func randomVector(rng *rand.Rand, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	// гарантируем ненулевой вектор
	v[0] += 0.5
	return v
}

func TestCosine_SelfSimilarityIsOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, n := range []int{1, 3, 16, 1536} {
		a := randomVector(rng, n)

		sim, err := Cosine(a, a)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, tolerance, "n=%d", n)
	}
}

func TestCosine_Symmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 50; i++ {
		a := randomVector(rng, 32)
		b := randomVector(rng, 32)

		ab, err := Cosine(a, b)
		require.NoError(t, err)
		ba, err := Cosine(b, a)
		require.NoError(t, err)

		assert.Equal(t, ab, ba)
		assert.GreaterOrEqual(t, ab, -1.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestCosine_DimensionMismatch(t *testing.T) {
	for _, pair := range [][2]int{{0, 1}, {1, 0}, {2, 3}, {3, 1536}, {1536, 1535}} {
		a := make([]float32, pair[0])
		b := make([]float32, pair[1])

		_, err := Cosine(a, b)

		var mismatch *e.DimensionMismatchError
		require.ErrorAs(t, err, &mismatch, "lengths %v", pair)
		assert.Equal(t, pair[0], mismatch.Left)
		assert.Equal(t, pair[1], mismatch.Right)
	}
}

func TestCosine_DegenerateVector(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{name: "left zero", a: []float32{0, 0, 0}, b: []float32{1, 2, 3}},
		{name: "right zero", a: []float32{1, 2, 3}, b: []float32{0, 0, 0}},
		{name: "both empty", a: []float32{}, b: []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := Cosine(tt.a, tt.b)
			assert.True(t, errors.Is(err, e.ErrDegenerateVector))
			assert.Zero(t, sim)
		})
	}
}

func TestCosine_KnownValues(t *testing.T) {
	orth, err := Cosine([]float32{1, 0, 0}, []float32{0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, orth, tolerance)

	opposite, err := Cosine([]float32{1, 2}, []float32{-2, -4})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, opposite, tolerance)
}

func TestCosine_DoesNotMutateInputs(t *testing.T) {
	a := []float32{3, 4}
	b := []float32{4, 3}

	_, err := Cosine(a, b)
	require.NoError(t, err)

	assert.Equal(t, []float32{3, 4}, a)
	assert.Equal(t, []float32{4, 3}, b)
}

func TestAverage(t *testing.T) {
	_, ok := Average(nil)
	assert.False(t, ok)

	avg, ok := Average([]float64{0.5, 0.75, 1})
	assert.True(t, ok)
	assert.InDelta(t, 0.75, avg, tolerance)
}
