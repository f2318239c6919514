package protocol

import "time"

// Transcript is a dictation result broadcast on the bus. Partial
// transcripts update in place while an utterance is in flight; the
// final transcript closes the utterance.
type Transcript struct {
	SessionID   string    `json:"session_id"`
	UtteranceID string    `json:"utterance_id"`
	Text        string    `json:"text"`
	Partial     bool      `json:"partial"`
	Confidence  float64   `json:"confidence,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

const (
	SubjectTranscriptPartial = "dictation.transcript.partial"
	SubjectTranscriptFinal   = "dictation.transcript.final"
)

// Subject returns the bus subject this transcript publishes on.
func (t Transcript) Subject() string {
	if t.Partial {
		return SubjectTranscriptPartial
	}
	return SubjectTranscriptFinal
}
