package asr

import (
	"encoding/json"
	"time"
)

// Default confidences used when the recognizer reports no per-word
// scores.
const (
	defaultFinalConfidence   = 1.0
	defaultPartialConfidence = 0.5
)

// Result is one transcription outcome, partial or final. ProcessedText
// starts equal to RawText; downstream command processing may rewrite it.
type Result struct {
	RawText       string
	ProcessedText string
	Final         bool
	Confidence    float64
	TimestampMS   int64
}

func emptyResult() Result {
	return Result{TimestampMS: time.Now().UnixMilli()}
}

func textResult(text string) Result {
	r := emptyResult()
	r.RawText = text
	r.ProcessedText = text
	return r
}

// recognizerPayload mirrors the JSON the recognizer session emits:
// "text" for final results, "partial" for hypotheses in flight, and an
// optional word list with per-word confidence.
type recognizerPayload struct {
	Text    *string `json:"text"`
	Partial *string `json:"partial"`
	Words   []struct {
		Conf *float64 `json:"conf"`
	} `json:"result"`
}

// parseResult turns recognizer JSON into a Result. Malformed input
// yields an empty result and the parse error; it never panics.
func parseResult(payload string) (Result, error) {
	result := emptyResult()

	var parsed recognizerPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return result, err
	}

	switch {
	case parsed.Text != nil:
		result.RawText = *parsed.Text
		result.ProcessedText = *parsed.Text
		result.Final = true
		result.Confidence = defaultFinalConfidence
		if conf, ok := averageWordConfidence(parsed); ok {
			result.Confidence = conf
		}
	case parsed.Partial != nil:
		result.RawText = *parsed.Partial
		result.ProcessedText = *parsed.Partial
		result.Final = false
		result.Confidence = defaultPartialConfidence
	}
	return result, nil
}

func averageWordConfidence(parsed recognizerPayload) (float64, bool) {
	var total float64
	var count int
	for _, w := range parsed.Words {
		if w.Conf != nil {
			total += *w.Conf
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return total / float64(count), true
}
