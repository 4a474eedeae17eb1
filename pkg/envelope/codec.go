package envelope

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	skerrors "github.com/gezibash/arc-skill/pkg/errors"
)

var api = sonic.ConfigStd

// Unmarshal decodes and validates a request envelope.
func Unmarshal(data []byte) (*RequestEnvelope, error) {
	var env RequestEnvelope
	if err := api.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", skerrors.ErrInvalidInput, err)
	}
	if err := Validate(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Decode reads a single request envelope from r.
func Decode(r io.Reader) (*RequestEnvelope, error) {
	var env RequestEnvelope
	if err := api.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", skerrors.ErrInvalidInput, err)
	}
	if err := Validate(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Validate checks the fields every dispatch relies on.
func Validate(env *RequestEnvelope) error {
	if env == nil || env.Request == nil {
		return fmt.Errorf("%w: missing request", skerrors.ErrInvalidInput)
	}
	if env.Request.Type == "" {
		return fmt.Errorf("%w: missing request.type", skerrors.ErrInvalidInput)
	}
	return nil
}

// Marshal encodes any envelope value using the shared codec.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent encodes v with two-space indentation, for logs and CLIs.
func MarshalIndent(v any) ([]byte, error) {
	return api.MarshalIndent(v, "", "  ")
}
