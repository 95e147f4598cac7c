package domain

import (
	"bytes"
	"encoding/json"
)

// Envelope is the wrapper every backend response uses. Product endpoints carry
// their payload under "product" instead of "data".
type Envelope struct {
	Status  bool            `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Product json.RawMessage `json:"product"`
}

// Payload returns whichever payload field is present.
func (e Envelope) Payload() json.RawMessage {
	if len(e.Data) > 0 && !isNull(e.Data) {
		return e.Data
	}
	if len(e.Product) > 0 && !isNull(e.Product) {
		return e.Product
	}
	return nil
}

// DecodeEnvelope unmarshals body into an envelope and its payload into T.
// When required is false a missing payload, or an empty body, yields the
// zero value of T.
func DecodeEnvelope[T any](resource string, body []byte, required bool) (T, string, error) {
	var zero T
	if !required && len(bytes.TrimSpace(body)) == 0 {
		return zero, "", nil
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, "", &DecodeError{Resource: resource, Reason: "invalid envelope", Err: err}
	}
	payload := env.Payload()
	if payload == nil {
		if required {
			return zero, env.Message, &DecodeError{Resource: resource, Reason: "missing payload"}
		}
		return zero, env.Message, nil
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&out); err != nil {
		return zero, env.Message, &DecodeError{Resource: resource, Reason: "unexpected payload shape", Err: err}
	}
	return out, env.Message, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
