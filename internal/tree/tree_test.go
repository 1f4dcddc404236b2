package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageFor(t *testing.T) {
	_, ok := StageFor(0)
	assert.False(t, ok)

	cases := map[int]string{
		1:  "Семечко",
		2:  "Семечко",
		3:  "Росток",
		7:  "Молодое деревце",
		15: "Ветвистое деревце",
		29: "Ветвистое деревце",
		30: "Могучее дерево",
		99: "Могучее дерево",
	}
	for days, want := range cases {
		s, ok := StageFor(days)
		assert.True(t, ok, "days=%d", days)
		assert.Equal(t, want, s.Name, "days=%d", days)
	}
}

func TestNext(t *testing.T) {
	next, left, ok := Next(0)
	assert.True(t, ok)
	assert.Equal(t, 1, next.MinDays)
	assert.Equal(t, 1, left)

	next, left, ok = Next(10)
	assert.True(t, ok)
	assert.Equal(t, 15, next.MinDays)
	assert.Equal(t, 5, left)

	_, _, ok = Next(30)
	assert.False(t, ok)
}
