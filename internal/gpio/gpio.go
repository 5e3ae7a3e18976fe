// Package gpio reads the session push button with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the button input state.
type Reader interface {
	// Read returns the logical button state, true while pressed.
	// The button is wired active-low: raw 0 = pressed.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// PinButton is the default button pin (BCM numbering).
const PinButton = 17
