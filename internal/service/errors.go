package service

import "errors"

// Domain Errors
var (
	ErrSubjectNotFound            = errors.New("student or group not found")
	ErrSubjectInactive            = errors.New("student or group is inactive")
	ErrGroupEmpty                 = errors.New("group has no active members")
	ErrSessionNotFound            = errors.New("session not found")
	ErrInsufficientSessionBalance = errors.New("not enough remaining sessions")
	ErrCancellationWindowClosed   = errors.New("cancellation window has closed")
	ErrInvalidStateTransition     = errors.New("session state does not allow this transition")
	ErrCreditNotFound             = errors.New("makeup credit not found")
	ErrCreditAlreadyUsed          = errors.New("makeup credit already used")
	ErrNotPrivateSession          = errors.New("operation requires a private session")
	ErrNotGroupSession            = errors.New("operation requires a group session")
	ErrUnknownParticipant         = errors.New("student has no attendance record on this session")
)
