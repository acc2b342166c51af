// Package transcribe validates uploaded audio and turns it into text via the
// speech-to-text service.
package transcribe

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// MaxFileSize is the largest upload the transcription backend accepts.
const MaxFileSize = 25 << 20 // 25 MiB, whisper API limit

// supportedFormats holds the allowed audio file extensions, without the dot.
var supportedFormats = map[string]struct{}{
	"mp3":  {},
	"wav":  {},
	"m4a":  {},
	"ogg":  {},
	"webm": {},
	"mp4":  {},
}

// SpeechClient is the external speech-to-text call.
type SpeechClient interface {
	Transcribe(ctx context.Context, filePath string) (string, error)
}

// Adapter wraps validation and the transcription call.
type Adapter struct {
	client SpeechClient
}

func NewAdapter(client SpeechClient) *Adapter {
	return &Adapter{client: client}
}

// Validate rejects uploads with an unsupported extension or above the size
// cap. Pure metadata check, no I/O.
func Validate(filename string, sizeBytes int64) (bool, string) {
	ext := normalizeExt(filename)
	if _, ok := supportedFormats[ext]; !ok {
		return false, fmt.Sprintf("Unsupported format '.%s'. Allowed: %s", ext, allowedList())
	}
	if sizeBytes > MaxFileSize {
		return false, "File too large. Maximum size is 25MB."
	}
	return true, ""
}

// Transcribe submits the stored file and returns the plain-text transcript.
// Failures from the external call are surfaced as-is; the caller does not
// distinguish auth, quota, or network sub-causes.
func (a *Adapter) Transcribe(ctx context.Context, filePath string) (string, error) {
	text, err := a.client.Transcribe(ctx, filePath)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return text, nil
}

// normalizeExt lowercases the substring after the last dot.
func normalizeExt(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return strings.ToLower(filename)
	}
	return strings.ToLower(filename[i+1:])
}

func allowedList() string {
	exts := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
