package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/tradematch/backend/internal/domain"
)

type chatRequest struct {
	Model     string                    `json:"model"`
	Messages  []domain.ReasoningMessage `json:"messages"`
	Reasoning *reasoningOptions         `json:"reasoning,omitempty"`
}

type reasoningOptions struct {
	Enabled bool `json:"enabled"`
}

type chatResponse struct {
	Choices []struct {
		Message domain.ReasoningMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// newChatRequest builds the wire body. Messages are passed through as-is so
// reasoning_details from earlier assistant turns go back byte for byte.
func newChatRequest(model string, messages []domain.ReasoningMessage, reasoningEnabled bool) chatRequest {
	req := chatRequest{Model: model, Messages: messages}
	if reasoningEnabled {
		req.Reasoning = &reasoningOptions{Enabled: true}
	}
	return req
}

// decodeChatResponse maps the first choice to the assistant turn
func decodeChatResponse(body []byte) (domain.ReasoningMessage, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ReasoningMessage{}, fmt.Errorf("%w: %v", domain.ErrGatewayMalformedResponse, err)
	}
	if resp.Error != nil {
		return domain.ReasoningMessage{}, fmt.Errorf("%w: %s", domain.ErrGatewayMalformedResponse, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return domain.ReasoningMessage{}, fmt.Errorf("%w: no choices in response", domain.ErrGatewayMalformedResponse)
	}

	msg := resp.Choices[0].Message
	if msg.Role == "" {
		msg.Role = domain.RoleAssistant
	}
	if isJSONNull(msg.ReasoningDetails) {
		msg.ReasoningDetails = nil
	}
	return msg, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 4 && string(raw) == "null"
}
