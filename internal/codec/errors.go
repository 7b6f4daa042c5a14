package codec

import (
	"errors"
	"fmt"
)

// ValidationError reports an input outside the codec's supported domain.
type ValidationError struct {
	Codec string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Codec, e.Field, e.Msg)
}

// DecodeError reports a token the codec cannot parse.
type DecodeError struct {
	Codec string
	Token string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: cannot decode %q", e.Codec, e.Token)
	}
	return fmt.Sprintf("%s: cannot decode %q: %v", e.Codec, e.Token, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InitError is returned when a codec fails its startup initialization.
type InitError struct {
	Codec string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s: initialization failed: %v", e.Codec, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Kind classifies err as "validation", "decode" or "" for anything else.
func Kind(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "validation"
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return "decode"
	}
	return ""
}

// IsClientError reports whether err was caused by caller input.
func IsClientError(err error) bool {
	return Kind(err) != ""
}
