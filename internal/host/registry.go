package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/FairForge/s3connector/internal/common"
	"github.com/google/uuid"
)

var ErrUnknownNode = errors.New("host: unknown node")

// Registry maps class names to nodes. Registration normally happens once at
// start-up; lookups and executions may run concurrently.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]Node)}
}

// Register adds a node under its declared class name.
func (r *Registry) Register(n Node) error {
	def := n.Definition()
	if def.Class == "" {
		return errors.New("host: node has no class name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.nodes[def.Class]; exists {
		return fmt.Errorf("host: node %s already registered", def.Class)
	}
	r.nodes[def.Class] = n
	return nil
}

func (r *Registry) Lookup(class string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[class]
	return n, ok
}

// Definitions returns every registered definition sorted by class.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defs := make([]Definition, 0, len(r.nodes))
	for _, n := range r.nodes {
		defs = append(defs, n.Definition())
	}
	r.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Class < defs[j].Class })
	return defs
}

// Execute runs class once. Declared string defaults fill missing inputs,
// required sockets must be present, and the node must produce exactly its
// declared outputs. On error no outputs are returned.
func (r *Registry) Execute(ctx context.Context, class string, exec *ExecutionContext, in Inputs) ([]any, error) {
	n, ok := r.Lookup(class)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, class)
	}
	def := n.Definition()

	resolved := make(Inputs, len(in))
	for k, v := range in {
		resolved[k] = v
	}
	for _, group := range [][]Input{def.Required, def.Optional} {
		for _, socket := range group {
			if _, ok := resolved[socket.Name]; !ok && socket.Type == TypeString {
				resolved[socket.Name] = socket.Default
			}
		}
	}
	for _, socket := range def.Required {
		if v, ok := resolved[socket.Name]; !ok || v == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingInput, class, socket.Name)
		}
	}

	if exec != nil && exec.PromptID != "" {
		ctx = common.WithPromptID(ctx, exec.PromptID)
	}

	out, err := n.Execute(ctx, exec, resolved)
	if err != nil {
		return nil, err
	}
	if len(out) != len(def.Outputs) {
		return nil, fmt.Errorf("host: %s returned %d outputs, declared %d", class, len(out), len(def.Outputs))
	}
	return out, nil
}

// IsChanged returns the cache token the host compares between runs. Nodes
// marked AlwaysExecute get a fresh token every call so they are never
// served from cache; others return "" and are cached on their inputs.
func (r *Registry) IsChanged(class string) (string, error) {
	n, ok := r.Lookup(class)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownNode, class)
	}
	if n.Definition().AlwaysExecute {
		return uuid.NewString(), nil
	}
	return "", nil
}
