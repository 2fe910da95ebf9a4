// Package vector содержит чистые функции над векторами эмбеддингов.
package vector

import (
	"math"

	"github.com/DRSN-tech/conditions-backend/pkg/e"
)

// Cosine вычисляет косинусное сходство dot(a,b) / (|a|·|b|).
// Для векторов разной длины возвращает *e.DimensionMismatchError,
// если хотя бы один вектор нулевой (или оба пустые) - e.ErrDegenerateVector.
// Результат всегда лежит в [-1, 1], входные срезы не изменяются.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &e.DimensionMismatchError{Left: len(a), Right: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, e.ErrDegenerateVector
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, e.ErrDegenerateVector
	}

	return clamp(sim), nil
}

// Average возвращает среднее значение и false для пустого среза.
func Average(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values)), true
}

// clamp отсекает погрешность округления за пределами [-1, 1]
func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
