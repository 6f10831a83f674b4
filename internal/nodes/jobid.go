package nodes

import (
	"context"
	"fmt"

	"github.com/FairForge/s3connector/internal/host"
)

type jobIDNode struct{}

// NewJobID returns the node that reports the id of the running job.
func NewJobID() host.Node { return jobIDNode{} }

func (jobIDNode) Definition() host.Definition {
	return host.Definition{
		Class:       "GetJobID",
		DisplayName: "Get Job ID",
		Category:    Category,
		Description: "Output the identifier of the job currently executing.",
		Hidden: []host.Input{
			{Name: "prompt", Type: host.TypePrompt},
			{Name: "extra_pnginfo", Type: host.TypePNGInfo},
		},
		Outputs:       []host.Output{{Name: "job_id", Type: host.TypeString}},
		AlwaysExecute: true,
	}
}

func (jobIDNode) Execute(_ context.Context, exec *host.ExecutionContext, _ host.Inputs) ([]any, error) {
	id, err := JobID(exec)
	if err != nil {
		return nil, err
	}
	return []any{id}, nil
}

// JobID resolves the job identifier from exec. A client-supplied batch id
// wins over the prompt id recorded in the PNG metadata, which wins over the
// id the host queued the job under.
func JobID(exec *host.ExecutionContext) (string, error) {
	if exec == nil {
		return "", host.ErrContextUnavailable
	}
	if id := lookupID(exec.ExtraData, "batch_id"); id != "" {
		return id, nil
	}
	if id := lookupID(exec.ExtraPNGInfo, "prompt_id"); id != "" {
		return id, nil
	}
	if exec.PromptID != "" {
		return exec.PromptID, nil
	}
	return "", host.ErrContextUnavailable
}

func lookupID(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
