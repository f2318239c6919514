package asr

import "sync"

// mockSession is the recognizer used when no real backend is
// configured. It accepts audio and emits empty payloads, but can be
// scripted with canned responses, which the package tests rely on.
type mockSession struct {
	mu       sync.Mutex
	accepted int
	resets   int
	closed   bool

	// Scripted responses, consumed in order. When a queue is empty the
	// session falls back to empty payloads.
	acceptReturns []bool
	results       []string
	partials      []string
	finals        []string
}

func newMockSession() *mockSession {
	return &mockSession{}
}

func (s *mockSession) AcceptWaveform(pcm []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepted++
	if len(s.acceptReturns) > 0 {
		final := s.acceptReturns[0]
		s.acceptReturns = s.acceptReturns[1:]
		return final, nil
	}
	return false, nil
}

func (s *mockSession) Result() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) > 0 {
		out := s.results[0]
		s.results = s.results[1:]
		return out
	}
	return `{"text": ""}`
}

func (s *mockSession) PartialResult() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.partials) > 0 {
		out := s.partials[0]
		s.partials = s.partials[1:]
		return out
	}
	return `{"partial": ""}`
}

func (s *mockSession) FinalResult() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.finals) > 0 {
		out := s.finals[0]
		s.finals = s.finals[1:]
		return out
	}
	return `{"text": ""}`
}

func (s *mockSession) Reset() {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

func (s *mockSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
