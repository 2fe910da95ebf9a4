// Package jitter добавляет случайность в интервалы повторов, чтобы клиенты не повторяли запросы синхронно.
package jitter

import (
	"math/rand/v2"
	"time"
)

// DefaultJitter - стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

// Duration возвращает продолжительность с применённым джиттером.
// Результат находится в диапазоне [d, d*(1+jitterFactor)].
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	if d <= 0 || jitterFactor <= 0 {
		return d
	}
	return d + time.Duration(rand.Float64()*jitterFactor*float64(d))
}

// ExponentialBackoff вычисляет паузу перед повтором номер attempt (с нуля):
// base удваивается на каждой попытке, но не превышает max, затем применяется джиттер.
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > max {
			backoff = max
			break
		}
	}
	return Duration(backoff, jitterFactor)
}

// Backoff - функция паузы перед повтором; подменяется в тестах.
type Backoff func(attempt int) time.Duration

// NewBackoff возвращает экспоненциальный Backoff с DefaultJitter.
func NewBackoff(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return ExponentialBackoff(base, max, attempt, DefaultJitter)
	}
}

// NoBackoff не ждёт между попытками.
func NoBackoff(int) time.Duration { return 0 }
