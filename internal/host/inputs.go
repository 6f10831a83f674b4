package host

import (
	"errors"
	"fmt"

	"github.com/FairForge/s3connector/internal/tensor"
)

var (
	ErrMissingInput = errors.New("host: missing input")
	ErrInputType    = errors.New("host: wrong input type")
)

// Inputs holds the values the host wired into a node's sockets.
type Inputs map[string]any

// String returns a STRING input. A missing optional string reads as "".
func (in Inputs) String(name string) (string, error) {
	v, ok := in[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrInputType, name, v)
	}
	return s, nil
}

// Image returns a required IMAGE input.
func (in Inputs) Image(name string) (*tensor.Image, error) {
	v, ok := in[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, name)
	}
	im, ok := v.(*tensor.Image)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want image", ErrInputType, name, v)
	}
	return im, nil
}

// Mask returns an optional MASK input, nil when unset.
func (in Inputs) Mask(name string) (*tensor.Mask, error) {
	v, ok := in[name]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(*tensor.Mask)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want mask", ErrInputType, name, v)
	}
	return m, nil
}
