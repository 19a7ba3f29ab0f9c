package protocol

import (
	"encoding/json"
	"fmt"
)

// Encode marshals a payload into an envelope frame. A nil payload produces
// an envelope with no data field, which is valid for bare signals.
func Encode(event, matchID string, payload any) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("encode: empty event name")
	}
	env := Envelope{Event: event, MatchID: matchID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// DecodeEnvelope parses a frame. Frames from the legacy client shape, where
// payload fields sit beside "event" instead of under "data", decode with an
// empty Data; callers fall back to re-reading the raw frame for those.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode: empty frame")
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode: frame missing event")
	}
	if len(env.Data) == 0 {
		// Legacy shape: treat the whole frame as the payload.
		env.Data = b
	}
	return env, nil
}

// DecodePayload unmarshals an envelope's data into a concrete payload type.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Data) == 0 {
		return out, fmt.Errorf("decode: empty payload for %q", env.Event)
	}
	err := json.Unmarshal(env.Data, &out)
	return out, err
}
