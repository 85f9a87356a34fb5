package transcribe

import "context"

// MockTranscriber returns a canned transcript for tests. Paths records every
// file it was asked to transcribe.
type MockTranscriber struct {
	Text  string
	Err   error
	Paths []string
}

// TranscribeFile records the path and returns the canned transcript or error.
func (m *MockTranscriber) TranscribeFile(ctx context.Context, path string) (string, error) {
	m.Paths = append(m.Paths, path)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}
