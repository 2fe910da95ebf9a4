// Package format содержит общие функции форматирования результатов поиска для CLI и HTTP.
package format

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Percent переводит сходство в проценты с двумя знаками: 0.87346 -> "87.35%".
func Percent(similarity float64) string {
	return PercentValue(similarity).StringFixed(2) + "%"
}

// PercentValue возвращает сходство в процентах, округлённое до двух знаков.
func PercentValue(similarity float64) decimal.Decimal {
	return decimal.NewFromFloat(similarity).Mul(decimal.NewFromInt(100)).Round(2)
}

// Excerpt обрезает текст до max символов (рун) и добавляет "..." если текст был длиннее.
func Excerpt(text string, max int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	return string(runes[:max]) + "..."
}
