package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prostoMif/UnTT-v1.0/internal/flow"
)

func TestMainMenuButtons(t *testing.T) {
	m := markupFor(flow.Reply{Menu: flow.MenuMain})
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 3)

	assert.Equal(t, cbGoTikTok, m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, cbSos, m.InlineKeyboard[1][0].Unique)
	assert.Equal(t, cbStats, m.InlineKeyboard[2][0].Unique)
	assert.Equal(t, cbSubscribe, m.InlineKeyboard[2][1].Unique)
}

func TestDurationPresetsCarryMinutes(t *testing.T) {
	m := markupFor(flow.Reply{Menu: flow.MenuDurations})
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 1)

	row := m.InlineKeyboard[0]
	require.Len(t, row, 3)
	want := []string{"5", "15", "30"}
	for i, btn := range row {
		assert.Equal(t, cbDuration, btn.Unique)
		assert.Equal(t, want[i], btn.Data)
	}
}

func TestSosPriorityPayloadsMatchLabels(t *testing.T) {
	m := markupFor(flow.Reply{Menu: flow.MenuSosPriorities})
	require.NotNil(t, m)

	seen := 0
	for _, row := range m.InlineKeyboard {
		for _, btn := range row {
			assert.Equal(t, cbSosPriority, btn.Unique)
			assert.Equal(t, btn.Text, btn.Data)
			seen++
		}
	}
	assert.Equal(t, len(sosPriorities), seen)
}

func TestPaymentMenuIncludesLinkWhenPresent(t *testing.T) {
	m := markupFor(flow.Reply{Menu: flow.MenuPayment, URL: "https://yookassa.ru/pay/abc"})
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "https://yookassa.ru/pay/abc", m.InlineKeyboard[0][0].URL)
	assert.Equal(t, cbCheckPayment, m.InlineKeyboard[1][0].Unique)
}

func TestPaymentMenuWithoutLink(t *testing.T) {
	m := markupFor(flow.Reply{Menu: flow.MenuPayment})
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 1)
	assert.Equal(t, cbCheckPayment, m.InlineKeyboard[0][0].Unique)
}

func TestNoMarkupForPlainReplies(t *testing.T) {
	assert.Nil(t, markupFor(flow.Reply{Menu: flow.MenuNone}))
}
