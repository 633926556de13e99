package errors

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	ErrInternal = errors.New("internal")

	// QA pipeline taxonomy. The first five are terminal for a request;
	// retrieval and logging failures are absorbed by the orchestrator.
	ErrBookNotFound        = errors.New("book not found")
	ErrTranscription       = errors.New("transcription failed")
	ErrInvalidQuestion     = errors.New("invalid question")
	ErrInsufficientContext = errors.New("insufficient context")
	ErrGeneration          = errors.New("generation failed")
	ErrSynthesis           = errors.New("synthesis failed")
	ErrRetrieval           = errors.New("retrieval failed")
	ErrLogging             = errors.New("question logging failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBookNotFound)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}
