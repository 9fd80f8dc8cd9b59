package domain

import "time"

// Stage is a state of the setup pipeline.
type Stage string

const (
	StageIdle                   Stage = "idle"
	StageVerifyingDomain        Stage = "verifyingDomain"
	StagePublishingVerification Stage = "publishVerification"
	StagePollingVerification    Stage = "verification"
	StagePublishingRecords      Stage = "publishRecords"
	StageCreatingAccount        Stage = "account"
	StagePersisting             Stage = "persist"
	StageComplete               Stage = "complete"
	StageFailed                 Stage = "failed"
)

// Terminal reports whether no further transitions happen without a retry.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// EventStatus is the UI-facing status of a stage.
type EventStatus string

const (
	EventWaiting    EventStatus = "waiting"
	EventProcessing EventStatus = "processing"
	EventComplete   EventStatus = "complete"
	EventError      EventStatus = "error"
)

// StatusEvent is emitted on every stage transition. Observers must not feed back into the pipeline.
type StatusEvent struct {
	AttemptID string      `json:"attempt_id"`
	Stage     Stage       `json:"stage"`
	Status    EventStatus `json:"status"`
	Detail    string      `json:"detail,omitempty"`
	At        time.Time   `json:"at"`
}

// FailureReason classifies why a stage stopped the pipeline.
type FailureReason string

const (
	ReasonPermanent    FailureReason = "permanent"
	ReasonTransient    FailureReason = "transient"
	ReasonTimeout      FailureReason = "timeout"
	ReasonUnresolvable FailureReason = "unresolvable"
	ReasonAuthRequired FailureReason = "authRequired"
	ReasonProvider     FailureReason = "provider"
	ReasonRetryable    FailureReason = "retryable"
	ReasonCancelled    FailureReason = "cancelled"
)

// Failure records the stage that stopped the pipeline and why.
type Failure struct {
	Stage  Stage         `json:"stage"`
	Reason FailureReason `json:"reason"`
	Detail string        `json:"detail"`
}

// Recoverable reports whether a user-triggered retry can resume the attempt.
func (f Failure) Recoverable() bool {
	switch f.Reason {
	case ReasonTimeout, ReasonTransient, ReasonAuthRequired, ReasonRetryable, ReasonProvider:
		return true
	}
	return false
}
