package engine

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned when a frequency, volume, waveform or drift range is out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoSession is returned when an operation needs a running tone pair and none is active.
	ErrNoSession = errors.New("no active session")
	// ErrUnsupported is returned when the graph context lacks a capability the operation needs.
	ErrUnsupported = errors.New("unsupported by audio graph")
	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("controller closed")
)

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
