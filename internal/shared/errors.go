package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Local store errors
	ErrStorageUnavailable = fmt.Errorf("local storage unavailable")
	ErrNotFound           = fmt.Errorf("not found")
	ErrUnknownCollection  = fmt.Errorf("unknown collection")
	ErrNamespaceClosed    = fmt.Errorf("namespace closed")

	// Sync errors
	ErrOutOfOrderUpdate  = fmt.Errorf("out of order update")
	ErrRemoteUnavailable = fmt.Errorf("remote unavailable")
	ErrStreamClosed      = fmt.Errorf("change stream closed")

	// Playback errors
	ErrSourceResolution = fmt.Errorf("could not resolve playable source")
	ErrAudioBackend     = fmt.Errorf("audio backend failure")
	ErrInvalidIndex     = fmt.Errorf("invalid queue index")
	ErrEmptyQueue       = fmt.Errorf("queue is empty")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
