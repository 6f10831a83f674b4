package common

import "context"

// ContextKey is the type for context keys
type ContextKey string

// PromptIDKey carries the id of the host job a call runs for.
const PromptIDKey ContextKey = "prompt_id"

// WithPromptID tags ctx with the host job being executed.
func WithPromptID(ctx context.Context, promptID string) context.Context {
	return context.WithValue(ctx, PromptIDKey, promptID)
}

// PromptID returns the job tagged by WithPromptID, or "".
func PromptID(ctx context.Context) string {
	if v, ok := ctx.Value(PromptIDKey).(string); ok {
		return v
	}
	return ""
}
