package textparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"5 минут", 5},
		{"1 час", 60},
		{"30", 30},
		{"0.5 ч", 30},
		{"0,5 часа", 30},
		{"2 часа", 120},
		{"2ч", 120},
		{"  10 мин  ", 10},
		{"15 minutes", 15},
		{"1 hour", 60},
		{"посижу 20 минут", 20},
	}
	for _, tc := range cases {
		got, err := Minutes(tc.in)
		assert.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestMinutesRejectsNonNumeric(t *testing.T) {
	for _, in := range []string{"", "   ", "немного", "час", "abc", "ноль"} {
		_, err := Minutes(in)
		assert.ErrorIs(t, err, ErrNoDuration, "input %q", in)
	}
}

func TestMinutesRejectsZero(t *testing.T) {
	_, err := Minutes("0")
	assert.ErrorIs(t, err, ErrNoDuration)

	_, err = Minutes("0 минут")
	assert.ErrorIs(t, err, ErrNoDuration)
}
