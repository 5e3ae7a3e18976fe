//go:build !linux

package gpio

import (
	"errors"
	"fmt"
)

var errUnsupported = errors.New("gpio: character device access requires Linux")

// RealReader is a placeholder so the daemon builds on development machines.
// Configure DRYEYE_BUTTON_PIN=-1 to run without a button.
type RealReader struct{}

// NewRealReader always fails off Linux.
func NewRealReader(pin int) (*RealReader, error) {
	return nil, fmt.Errorf("button on pin %d: %w", pin, errUnsupported)
}

func (r *RealReader) Read() (bool, error) {
	return false, errUnsupported
}

func (r *RealReader) Close() error {
	return nil
}
