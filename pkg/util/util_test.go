package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalendarDaysFor(t *testing.T) {
	assert.Equal(t, 0, CalendarDaysFor(0))
	assert.Equal(t, 14, CalendarDaysFor(5))
	assert.Equal(t, 359, CalendarDaysFor(252))
}

func TestNormalizeSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, NormalizeSymbols([]string{"aapl", " msft", "", "AAPL ", "nvda"}))
	assert.Empty(t, NormalizeSymbols(nil))
}
