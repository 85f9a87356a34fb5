// Package transcribe converts speaking-response audio files into text.
package transcribe

import "context"

// Transcriber turns an audio file on disk into its transcript.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}
