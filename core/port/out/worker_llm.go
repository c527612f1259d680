package out

import "context"

// CompletionRequest is a single text-completion call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// CompletionClient sends one request to the generative completion service.
// The response text is expected, but not guaranteed, to follow the requested format.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionStats is a snapshot of completion client usage.
type CompletionStats struct {
	Requests     int64  `json:"requests"`
	TokensUsed   int64  `json:"tokens_used"`
	Failures     int64  `json:"failures"`
	CircuitState string `json:"circuit_state"`
}

// CompletionStatsProvider is implemented by completion clients that track usage.
type CompletionStatsProvider interface {
	Stats() CompletionStats
}
