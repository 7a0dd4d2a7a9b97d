package speech

import "fmt"

type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("whisper transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("tts synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
