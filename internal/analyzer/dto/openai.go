package dto

// Message is one chat message in an OpenAI-style request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAPIReq is the request payload for the OpenAI chat completions API.
type OpenAPIReq struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// OpenAPIRes is the response payload from the OpenAI chat completions API.
type OpenAPIRes struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Usage reports token consumption for a completed call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
