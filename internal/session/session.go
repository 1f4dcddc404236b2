// Package session tracks which dialog step each user is in, with the
// transient data the step needs. State is ephemeral: losing it on
// restart is acceptable, so backends trade durability for speed.
package session

import (
	"context"
	"time"
)

// Step identifies a dialog step.
type Step string

const (
	// StepIdle means no active dialog.
	StepIdle Step = "idle"
	// StepAwaitingReason waits for the quick-pause reason.
	StepAwaitingReason Step = "waiting_purpose"
	// StepAwaitingDuration waits for the planned pause length.
	StepAwaitingDuration Step = "waiting_time"
	// StepAwaitingConfirmation waits for Finished/Staying while the
	// pause timer runs.
	StepAwaitingConfirmation Step = "waiting_confirmation"
	// StepAwaitingSosPriority waits for the SOS priority choice.
	StepAwaitingSosPriority Step = "sos_waiting_priority"
	// StepAwaitingSosConfirmation waits for the final SOS decision.
	StepAwaitingSosConfirmation Step = "sos_waiting_confirmation"
)

// Session holds the dialog position and transient inputs for one user.
type Session struct {
	Step           Step      `json:"step"`
	Reason         string    `json:"reason,omitempty"`
	PlannedMinutes int       `json:"planned_minutes,omitempty"`
	StartTime      time.Time `json:"start_time,omitempty"`
	SosPriority    string    `json:"sos_priority,omitempty"`
}

// Idle reports whether the session carries no active dialog.
func (s Session) Idle() bool {
	return s.Step == "" || s.Step == StepIdle
}

// Manager owns the per-user session registry. Backends must degrade
// softly: a failed read behaves like an idle session, a failed write
// is logged by the backend and not surfaced to dialog code.
type Manager interface {
	Get(ctx context.Context, userID int64) Session
	Put(ctx context.Context, userID int64, s Session)
	Clear(ctx context.Context, userID int64)
	InProgress(ctx context.Context, userID int64) bool
}
