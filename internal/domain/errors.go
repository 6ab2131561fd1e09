package domain

import "errors"

var (
	// ErrNotEnoughContent is returned when the source has fewer questions than the mode requires.
	ErrNotEnoughContent = errors.New("not enough questions for this filter")
	// ErrContentUnavailable indicates the question source could not be reached.
	ErrContentUnavailable = errors.New("question content unavailable")
	// ErrTransport indicates a score sink or entitlement call failed in transit.
	ErrTransport = errors.New("score transport failed")

	// ErrSessionNotFound is returned when no session is registered under an id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionNotStarted is returned for answers before a successful start.
	ErrSessionNotStarted = errors.New("quiz session not started")
	// ErrSessionStarted is returned when Start is called twice.
	ErrSessionStarted = errors.New("quiz session already started")
	// ErrSessionTerminal is returned for answers after the session ended.
	ErrSessionTerminal = errors.New("quiz session already finished")
	// ErrSessionAbandoned is returned by Finish when the player left before the session ended.
	ErrSessionAbandoned = errors.New("quiz session abandoned")
	// ErrSessionNotTerminal is returned by Finish before the session ended.
	ErrSessionNotTerminal = errors.New("quiz session still in progress")
	// ErrMediaNotReady is returned when the current question's media is still warming.
	ErrMediaNotReady = errors.New("question media not ready")
	// ErrAnswerLocked is returned when an answer was already accepted for the current question.
	ErrAnswerLocked = errors.New("answer already locked for this question")
	// ErrUnknownChoice indicates the submitted choice is not offered by the question.
	ErrUnknownChoice = errors.New("choice not offered by question")
	// ErrUntimedMode is returned for timeouts outside ranked mode.
	ErrUntimedMode = errors.New("mode has no countdown")
	// ErrInvalidRequest indicates an unknown mode, kind or filter.
	ErrInvalidRequest = errors.New("invalid session request")
)
