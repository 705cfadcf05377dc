package domain

import "errors"

var (
	// ErrProfileNotFound is returned when no profile exists for an identity.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrGroupNotFound indicates the group id does not resolve to a group.
	ErrGroupNotFound = errors.New("group not found")
	// ErrNotGroupOwner is returned when a non-owner tries to delete a group.
	ErrNotGroupOwner = errors.New("caller is not the group owner")
	// ErrEmptyGroupName rejects group names that are empty after trimming.
	ErrEmptyGroupName = errors.New("group name must not be empty")
	// ErrEmptyMessage rejects messages that are empty after trimming.
	ErrEmptyMessage = errors.New("message text must not be empty")
	// ErrUnknownTopic indicates a topic outside the fixed variant list.
	ErrUnknownTopic = errors.New("unknown quiz topic")
	// ErrEmptyQuestionSet rejects question sets with no questions, which
	// can come back from a misconfigured bank.
	ErrEmptyQuestionSet = errors.New("question set has no questions")
	// ErrUnknownBadge indicates a badge id outside the fixed variant list.
	ErrUnknownBadge = errors.New("unknown badge")
	// ErrSessionNotActive is returned for answers outside InProgress state.
	ErrSessionNotActive = errors.New("quiz session not accepting answers")
	// ErrSessionFinished is returned when starting against a completed session.
	ErrSessionFinished = errors.New("quiz session already completed")
	// ErrStoreUnavailable wraps remote-store failures after retries.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrAssistantUnavailable indicates the generative provider failed; the
	// caller should surface the canned fallback reply instead.
	ErrAssistantUnavailable = errors.New("assistant unavailable")
)
