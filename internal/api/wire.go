package api

import (
	"encoding/json"
	"fmt"

	"github.com/FairForge/s3connector/internal/engine"
	"github.com/FairForge/s3connector/internal/host"
	"github.com/FairForge/s3connector/internal/tensor"
)

// Tensor is the JSON form of an IMAGE or MASK value: a shape and the
// row-major values. Images are [B,H,W,C]; masks are [B,H,W] or [H,W].
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// ExecuteRequest is the body of POST /nodes/{class}/execute.
type ExecuteRequest struct {
	Inputs  map[string]json.RawMessage `json:"inputs"`
	Context *host.ExecutionContext     `json:"context,omitempty"`
}

type ExecuteResponse struct {
	Outputs []any `json:"outputs"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{engine.ErrInvalidInput}, args...)...)
}

// decodeInputs converts raw JSON values using the socket types in def.
// Hidden sockets are carried by the execution context and are skipped.
func decodeInputs(def host.Definition, raw map[string]json.RawMessage) (host.Inputs, error) {
	in := make(host.Inputs, len(raw))
	for name, msg := range raw {
		typ, ok := def.InputType(name)
		if !ok {
			return nil, invalid("%s has no input %q", def.Class, name)
		}
		switch typ {
		case host.TypeString:
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return nil, invalid("input %s: want string", name)
			}
			in[name] = s
		case host.TypeImage:
			im, err := decodeImage(msg)
			if err != nil {
				return nil, invalid("input %s: %v", name, err)
			}
			in[name] = im
		case host.TypeMask:
			if string(msg) == "null" {
				continue
			}
			m, err := decodeMask(msg)
			if err != nil {
				return nil, invalid("input %s: %v", name, err)
			}
			in[name] = m
		}
	}
	return in, nil
}

func decodeImage(msg json.RawMessage) (*tensor.Image, error) {
	var t Tensor
	if err := json.Unmarshal(msg, &t); err != nil {
		return nil, err
	}
	shape := t.Shape
	if len(shape) == 3 {
		shape = append([]int{1}, shape...)
	}
	if len(shape) != 4 {
		return nil, fmt.Errorf("image shape %v is not [B,H,W,C]", t.Shape)
	}
	im := &tensor.Image{Batch: shape[0], Height: shape[1], Width: shape[2], Channels: shape[3], Data: t.Data}
	if err := im.Validate(); err != nil {
		return nil, err
	}
	return im, nil
}

func decodeMask(msg json.RawMessage) (*tensor.Mask, error) {
	var t Tensor
	if err := json.Unmarshal(msg, &t); err != nil {
		return nil, err
	}
	shape := t.Shape
	if len(shape) == 2 {
		shape = append([]int{1}, shape...)
	}
	if len(shape) != 3 {
		return nil, fmt.Errorf("mask shape %v is not [B,H,W]", t.Shape)
	}
	m := &tensor.Mask{Batch: shape[0], Height: shape[1], Width: shape[2], Data: t.Data}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// encodeOutputs renders node outputs as JSON-friendly values.
func encodeOutputs(outs []any) []any {
	wire := make([]any, len(outs))
	for i, v := range outs {
		switch t := v.(type) {
		case *tensor.Image:
			wire[i] = Tensor{Shape: t.Shape(), Data: t.Data}
		case *tensor.Mask:
			wire[i] = Tensor{Shape: t.Shape(), Data: t.Data}
		default:
			wire[i] = v
		}
	}
	return wire
}
