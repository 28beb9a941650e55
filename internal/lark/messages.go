package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type sendMessageRequest struct {
	ReceiveID string `json:"receive_id"`
	MsgType   string `json:"msg_type"`
	Content   string `json:"content"`
}

type sendMessageData struct {
	MessageID string `json:"message_id"`
}

// SendText posts a text message to chatID and returns the new message id.
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message content: %w", err)
	}

	query := url.Values{}
	query.Set("receive_id_type", "chat_id")

	req := sendMessageRequest{
		ReceiveID: chatID,
		MsgType:   "text",
		// content is a JSON document embedded as a string
		Content: string(content),
	}

	var data sendMessageData
	if err := c.do(ctx, "send_message", http.MethodPost, "/open-apis/im/v1/messages", query, req, &data); err != nil {
		return "", err
	}
	return data.MessageID, nil
}
