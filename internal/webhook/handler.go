// Package webhook serves the Lark event callback that echoes chat messages
// back to their chat.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	Path = "/lark/webhook"

	eventMessageReceive = "im.message.receive_v1"
	maxBodyBytes        = 1 << 20
)

// Replier sends a text message to a chat.
type Replier interface {
	SendText(ctx context.Context, chatID, text string) (string, error)
}

type callback struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Token     string `json:"token"`
	Event     struct {
		Type   string `json:"type"`
		Sender struct {
			SenderType string `json:"sender_type"`
		} `json:"sender"`
		Message struct {
			ChatID  string          `json:"chat_id"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"event"`
}

type Handler struct {
	token        string
	replier      Replier
	replyTimeout time.Duration
}

func NewHandler(verificationToken string, replier Replier) *Handler {
	return &Handler{token: verificationToken, replier: replier, replyTimeout: 10 * time.Second}
}

// Routes registers the callback on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cb callback
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cb); err != nil {
		log.Warn().Err(err).Msg("Invalid callback body")
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"code": 1, "msg": "bad request"})
		return
	}

	switch cb.Type {
	case "url_verification":
		writeJSON(w, http.StatusOK, map[string]string{"challenge": cb.Challenge})
		return
	case "event_callback":
		if cb.Token != h.token {
			log.Warn().Msg("Callback with bad verification token")
			writeJSON(w, http.StatusForbidden, map[string]interface{}{"code": 1, "msg": "bad token"})
			return
		}
		h.handleEvent(r.Context(), &cb)
	}

	writeJSON(w, http.StatusOK, map[string]int{"code": 0})
}

func (h *Handler) handleEvent(ctx context.Context, cb *callback) {
	log.Debug().Str("event_type", cb.Event.Type).Msg("Received Lark event")
	if cb.Event.Type != eventMessageReceive {
		return
	}

	sender := cb.Event.Sender.SenderType
	chatID := cb.Event.Message.ChatID
	text := MessageText(cb.Event.Message.Content)

	log.Info().
		Str("chat_id", chatID).
		Str("sender_type", sender).
		Str("text", text).
		Msg("Received chat message")

	// never answer our own messages
	if sender == "app" || sender == "bot" || chatID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.replyTimeout)
	defer cancel()
	id, err := h.replier.SendText(ctx, chatID, "Echo: "+text)
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("Failed to send echo reply")
		return
	}
	log.Debug().Str("message_id", id).Msg("Echo reply sent")
}

// MessageText extracts the text of a message content field. Content is
// normally a JSON document encoded as a string; an object is accepted as is
// and a string that is not JSON is taken as the text itself.
func MessageText(raw json.RawMessage) string {
	var content struct {
		Text string `json:"text"`
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if err := json.Unmarshal([]byte(s), &content); err != nil {
			return s
		}
		return content.Text
	}

	if err := json.Unmarshal(raw, &content); err != nil {
		return ""
	}
	return content.Text
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
