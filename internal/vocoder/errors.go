// SPDX-License-Identifier: MIT
package vocoder

import (
	"errors"
	"fmt"

	"vocalfx/internal/fft"
)

var (
	// ErrBufferSizeMismatch is returned when a buffer does not match the
	// configured frame size.
	ErrBufferSizeMismatch = errors.New("buffer size mismatch")

	// ErrUnsupportedFFTSize is returned for transform sizes outside
	// fft.SupportedSizes.
	ErrUnsupportedFFTSize = fft.ErrUnsupportedFFTSize

	// ErrInvalidConfiguration is the parent of every ConfigError.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrProcessingFailed marks a frame whose correction could not be
	// computed. The frame is still rendered with the previous ratio.
	ErrProcessingFailed = errors.New("processing failed")
)

// ConfigError names the configuration field that failed validation. Err,
// when set, is a more specific sentinel the error also matches.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidConfiguration, e.Err}
	}
	return []error{ErrInvalidConfiguration}
}
