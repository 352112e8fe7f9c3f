package llm

// ChatCompletionEnvelopeSchema is the minimum shape a chat-completion response
// must have before its first choice is read.
func ChatCompletionEnvelopeSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"choices": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"message": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"role":    map[string]any{"type": "string"},
								"content": map[string]any{"type": "string"},
							},
							"required": []string{"content"},
						},
					},
					"required": []string{"message"},
				},
			},
		},
		"required": []string{"choices"},
	}
}
