package transcribe

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		wantOK   bool
	}{
		{"mp3", "meeting.mp3", 5 << 20, true},
		{"uppercase extension", "MEETING.MP3", 1024, true},
		{"wav", "call.wav", 1024, true},
		{"m4a", "voice.m4a", 1024, true},
		{"webm", "rec.webm", 1024, true},
		{"mp4 audio track", "standup.mp4", 1024, true},
		{"pdf rejected", "notes.pdf", 1024, false},
		{"no extension", "meeting", 1024, false},
		{"exactly at limit", "big.ogg", MaxFileSize, true},
		{"over limit", "big.ogg", MaxFileSize + 1, false},
		{"dotted name", "q3.review.mp3", 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Validate(tt.filename, tt.size)
			if ok != tt.wantOK {
				t.Fatalf("Validate(%q, %d) = %v (%q), want %v", tt.filename, tt.size, ok, reason, tt.wantOK)
			}
			if !ok && reason == "" {
				t.Error("rejection must carry a reason")
			}
			if ok && reason != "" {
				t.Errorf("acceptance carried reason %q", reason)
			}
		})
	}
}

func TestValidateReasonWording(t *testing.T) {
	_, reason := Validate("slides.pptx", 1024)
	if !strings.Contains(reason, "'.pptx'") {
		t.Errorf("reason %q should name the offending extension", reason)
	}

	_, reason = Validate("long.mp3", MaxFileSize+1)
	if !strings.Contains(reason, "25MB") {
		t.Errorf("reason %q should name the size limit", reason)
	}
}

type stubSpeech struct {
	text string
	err  error
}

func (s stubSpeech) Transcribe(ctx context.Context, filePath string) (string, error) {
	return s.text, s.err
}

func TestTranscribe(t *testing.T) {
	a := NewAdapter(stubSpeech{text: "Hello world"})
	got, err := a.Transcribe(context.Background(), "uploads/x.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello world" {
		t.Errorf("transcript = %q", got)
	}
}

func TestTranscribeError(t *testing.T) {
	cause := errors.New("groq status 401: invalid key")
	a := NewAdapter(stubSpeech{err: cause})
	_, err := a.Transcribe(context.Background(), "uploads/x.mp3")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, cause) {
		t.Errorf("error %v should wrap the adapter cause", err)
	}
}
