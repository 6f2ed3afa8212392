package live

import "errors"

var (
	// ErrNoActiveQuestion means an answer was submitted with no
	// question live.
	ErrNoActiveQuestion = errors.New("live: no active question")

	// ErrAlreadyAnswered means the current question was already
	// answered locally; input stays locked until the question changes.
	ErrAlreadyAnswered = errors.New("live: question already answered")
)
