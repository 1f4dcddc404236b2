package bot

import (
	"context"

	"github.com/prostoMif/UnTT-v1.0/core/telegram/helpers"
	"github.com/prostoMif/UnTT-v1.0/internal/flow"
	"github.com/prostoMif/UnTT-v1.0/internal/session"

	tele "gopkg.in/telebot.v4"
)

// dialogFSM routes free text into the active dialog step. It backs
// the text router's FSM hook with the session manager, so typed
// answers and button taps drive the same transitions.
type dialogFSM struct {
	sessions session.Manager
	svc      *flow.Service
}

func (f *dialogFSM) InProgress(userID int64) bool {
	return f.sessions.InProgress(context.Background(), userID)
}

func (f *dialogFSM) ManagerHandler(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	switch f.sessions.Get(ctx, userID).Step {
	case session.StepAwaitingReason:
		return render(c, f.svc.ChooseReason(ctx, userID, c.Text()))
	case session.StepAwaitingDuration:
		return render(c, f.svc.ChooseDuration(ctx, userID, c.Text()))
	default:
		// Confirmation steps only accept button taps; stray text
		// while a timer runs must not disturb the dialog.
		return nil
	}
}
