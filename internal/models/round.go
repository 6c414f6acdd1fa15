package models

// RoundStatus defines the lifecycle of a round.
type RoundStatus string

const (
	RoundStatusIdle     RoundStatus = "IDLE"
	RoundStatusRunning  RoundStatus = "RUNNING"
	RoundStatusFinished RoundStatus = "FINISHED"
)

// FinishReason distinguishes natural timer expiry from a manual cut-off.
type FinishReason string

const (
	FinishReasonExpired FinishReason = "EXPIRED"
	FinishReasonManual  FinishReason = "MANUAL"
)

// SessionStatus defines the lifecycle of a tournament session.
type SessionStatus string

const (
	SessionStatusWaiting    SessionStatus = "WAITING"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)
