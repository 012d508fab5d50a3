package recognition

import (
	"encoding/json"
	"errors"
	"fmt"
)

const transcriptFormatVersion = 1

type transcriptEnvelope struct {
	Version int `json:"version"`
	Transcript
}

// EncodeTranscript serializes t for the transcript cache.
func EncodeTranscript(t Transcript) ([]byte, error) {
	data, err := json.Marshal(transcriptEnvelope{Version: transcriptFormatVersion, Transcript: t})
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return data, nil
}

// DecodeTranscript parses a cached transcript. Payloads written by another
// format version are rejected so callers fall back to a fresh job.
func DecodeTranscript(data []byte) (Transcript, error) {
	var env transcriptEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}
	if env.Version != transcriptFormatVersion {
		return Transcript{}, fmt.Errorf("decode transcript: unsupported version %d", env.Version)
	}
	if env.Unit <= 0 {
		return Transcript{}, errors.New("decode transcript: missing time unit")
	}
	return env.Transcript, nil
}
