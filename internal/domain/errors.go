package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned when a blank question is submitted.
	ErrEmptyQuery = errors.New("please enter a question")
	// ErrBusy is returned when a question is submitted while another turn is running.
	ErrBusy = errors.New("processing, please wait")
	// ErrStoreUnavailable is returned when the chunk store failed to load at startup.
	ErrStoreUnavailable = errors.New("embeddings not loaded")
	// ErrVoiceUnavailable is returned when voice input is disabled.
	ErrVoiceUnavailable = errors.New("voice input is not available")
	// ErrCaptureBusy is returned when a voice capture is already running.
	ErrCaptureBusy = errors.New("already listening")
)

// LoadError reports a chunk artifact that is missing, unreadable or malformed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load embeddings from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// EmbeddingServiceError reports a failed call to the embedding service.
type EmbeddingServiceError struct {
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return "embedding creation failed: " + e.Err.Error()
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// GenerationServiceError reports a failed call to the generation service.
type GenerationServiceError struct {
	Err error
}

func (e *GenerationServiceError) Error() string {
	return "inference failed: " + e.Err.Error()
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }

// RetrievalError reports a ranking that could not be computed.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return "retrieval failed: " + e.Err.Error()
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// TimeoutError means no speech started within the listening window.
type TimeoutError struct {
	Waited string
}

func (e *TimeoutError) Error() string {
	return "no speech detected within " + e.Waited
}

// UnrecognizedError means audio was captured but could not be transcribed.
type UnrecognizedError struct {
	Err error
}

func (e *UnrecognizedError) Error() string {
	if e.Err == nil {
		return "could not understand audio"
	}
	return "could not understand audio: " + e.Err.Error()
}

func (e *UnrecognizedError) Unwrap() error { return e.Err }

// DeviceError reports a microphone or audio stream failure.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return "audio device error: " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error { return e.Err }
