package service

import "courseguide/internal/domain"

// Event is sent from the controller to the interactive surface. Events are
// delivered in emission order over the channel returned by Events.
type Event interface {
	isEvent()
}

// MessageEvent carries a new transcript entry.
type MessageEvent struct {
	Message domain.Message
}

// StatusEvent replaces the status line.
type StatusEvent struct {
	Text     string
	Severity domain.Severity
}

// TurnEvent carries a snapshot of the turn after a stage change. A snapshot
// with a terminal status is sent once the controller is ready for the next
// question.
type TurnEvent struct {
	Turn domain.Turn
}

// VoiceEvent carries a transcription that will be submitted shortly.
type VoiceEvent struct {
	Text string
}

// ClearedEvent signals that the transcript was emptied.
type ClearedEvent struct{}

func (MessageEvent) isEvent() {}
func (StatusEvent) isEvent()  {}
func (TurnEvent) isEvent()    {}
func (VoiceEvent) isEvent()   {}
func (ClearedEvent) isEvent() {}
