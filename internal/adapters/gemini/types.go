package gemini

// --- generateContent request ---
type generateRequest struct {
	Contents []contentDTO `json:"contents"`
}

type contentDTO struct {
	Role  string    `json:"role,omitempty"`
	Parts []partDTO `json:"parts"`
}

type partDTO struct {
	Text string `json:"text,omitempty"`
}

// --- generateContent response ---
type generateResponse struct {
	Candidates []struct {
		Content      contentDTO `json:"content"`
		FinishReason string     `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// --- errores ---
type apiErrorDTO struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
