// Package host models the plugin contract of the node-graph host: how a node
// declares its inputs and outputs, the execution context the host passes in,
// and the registry the host looks nodes up in.
package host

import (
	"context"
	"errors"
)

// IOType is a socket type understood by the host.
type IOType string

const (
	TypeImage   IOType = "IMAGE"
	TypeMask    IOType = "MASK"
	TypeString  IOType = "STRING"
	TypePrompt  IOType = "PROMPT"
	TypePNGInfo IOType = "EXTRA_PNGINFO"
)

// ErrContextUnavailable is returned when a node needs the execution context
// and the host did not supply one.
var ErrContextUnavailable = errors.New("host: execution context unavailable")

// Input declares one named input socket.
type Input struct {
	Name    string `json:"name" yaml:"name"`
	Type    IOType `json:"type" yaml:"type"`
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
}

// Output declares one output socket.
type Output struct {
	Name string `json:"name" yaml:"name"`
	Type IOType `json:"type" yaml:"type"`
}

// Definition is what a node registers with the host.
type Definition struct {
	Class       string   `json:"class" yaml:"class"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Required    []Input  `json:"required" yaml:"required"`
	Optional    []Input  `json:"optional,omitempty" yaml:"optional,omitempty"`
	Hidden      []Input  `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Outputs     []Output `json:"outputs" yaml:"outputs"`
	// OutputNode marks nodes the host always runs because they have side effects.
	OutputNode bool `json:"output_node" yaml:"output_node"`
	// AlwaysExecute disables the host's result caching for this node.
	AlwaysExecute bool `json:"always_execute" yaml:"always_execute"`
}

// InputType returns the declared type of name across all input groups.
func (d Definition) InputType(name string) (IOType, bool) {
	for _, group := range [][]Input{d.Required, d.Optional, d.Hidden} {
		for _, in := range group {
			if in.Name == name {
				return in.Type, true
			}
		}
	}
	return "", false
}

// ExecutionContext is the host state for the job currently running.
type ExecutionContext struct {
	// PromptID is the id the host assigned to the queued job.
	PromptID string `json:"prompt_id"`
	// ExtraData is the job's extra_data map; clients may set "batch_id".
	ExtraData map[string]any `json:"extra_data,omitempty"`
	// ExtraPNGInfo is the workflow metadata embedded in saved images.
	ExtraPNGInfo map[string]any `json:"extra_pnginfo,omitempty"`
}

// Node is a unit of work the host can execute.
type Node interface {
	Definition() Definition
	// Execute returns exactly len(Definition().Outputs) values, in order.
	Execute(ctx context.Context, exec *ExecutionContext, in Inputs) ([]any, error)
}
