package model

import "github.com/m-mizutani/goerr/v2"

// Error taxonomy shared across usecases. The HTTP layer maps these to
// status codes; everything else is treated as an internal failure.
var (
	ErrNotFound            = goerr.New("not found")
	ErrInvalidInput        = goerr.New("invalid input")
	ErrDuplicateAnswer     = goerr.New("question has already been answered")
	ErrTranscriptionFailed = goerr.New("could not understand the audio message")
)
