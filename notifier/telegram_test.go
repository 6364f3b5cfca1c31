package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gewnthar/grbwatch/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramPost(t *testing.T) {
	var chatID, text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"grbwatch"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			chatID = r.FormValue("chat_id")
			text = r.FormValue("text")
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":1,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tg, err := NewTelegram(config.TelegramConfig{BotToken: "123:abc", ChatID: 42, ServerURL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, tg.Post(context.Background(), samplePayload()))
	assert.Equal(t, "42", chatID)
	assert.Equal(t, FormatMessage(samplePayload()), text)
}

func TestTelegramConfigRequired(t *testing.T) {
	_, err := NewTelegram(config.TelegramConfig{ChatID: 42})
	require.Error(t, err)

	_, err = NewTelegram(config.TelegramConfig{BotToken: "123:abc"})
	require.Error(t, err)
}
