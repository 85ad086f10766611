package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CurrentSchemaVersion is written by Encode. Decode rejects any other version.
const CurrentSchemaVersion = 1

// ErrUnsupportedSchema is returned when a stored snapshot's version is unknown.
var ErrUnsupportedSchema = errors.New("unsupported session schema version")

type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// Encode serializes s inside a versioned envelope.
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil snapshot")
	}
	state, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{State: state, Version: CurrentSchemaVersion})
}

// Decode parses an envelope written by Encode.
func Decode(data []byte) (*Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode session envelope: %w", err)
	}
	if len(env.State) == 0 {
		return nil, errors.New("decode session envelope: missing state")
	}
	if env.Version != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, env.Version)
	}

	var s Snapshot
	if err := json.Unmarshal(env.State, &s); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &s, nil
}
