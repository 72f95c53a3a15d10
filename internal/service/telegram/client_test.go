package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "whitelist-bot/internal/common/errors"
)

const token = "123:secret"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(token, WithBaseURL(srv.URL+"/"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetMe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot"+token+"/getMe", r.URL.Path)
		writeJSON(w, map[string]any{
			"ok":     true,
			"result": map[string]any{"id": 99, "is_bot": true, "first_name": "Whitelist", "username": "wl_bot"},
		})
	})

	me, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(99), me.ID)
	assert.Equal(t, "wl_bot", me.Username)
	assert.True(t, me.IsBot)
}

func TestGetUpdatesSendsOffsetAndTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "42", r.PostForm.Get("offset"))
		assert.Equal(t, "1", r.PostForm.Get("timeout"))
		assert.Equal(t, `["message"]`, r.PostForm.Get("allowed_updates"))
		writeJSON(w, map[string]any{
			"ok": true,
			"result": []map[string]any{{
				"update_id": 42,
				"message": map[string]any{
					"message_id": 1,
					"from":       map[string]any{"id": 7, "first_name": "Ann", "last_name": "Lee"},
					"chat":       map[string]any{"id": 7, "type": "private"},
					"text":       "/whitelist",
				},
			}},
		})
	})

	updates, err := c.GetUpdates(context.Background(), 42, time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	msg := updates[0].Message
	require.NotNil(t, msg)
	assert.Equal(t, "/whitelist", msg.Text)
	assert.Equal(t, "Ann Lee", msg.From.DisplayName())
	assert.Equal(t, ChatTypePrivate, msg.Chat.Type)
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "7", r.PostForm.Get("chat_id"))
		assert.Equal(t, "✅ Added to whitelist!", r.PostForm.Get("text"))
		assert.Empty(t, r.PostForm.Get("parse_mode"))
		writeJSON(w, map[string]any{"ok": true, "result": map[string]any{"message_id": 5, "chat": map[string]any{"id": 7}}})
	})

	msg, err := c.SendMessage(context.Background(), 7, "✅ Added to whitelist!")
	require.NoError(t, err)
	assert.Equal(t, int64(5), msg.MessageID)
}

func TestSendDocumentUploadsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "7", r.FormValue("chat_id"))
		assert.Equal(t, "2 rows", r.FormValue("caption"))

		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer file.Close()
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "export.csv", header.Filename)
		assert.Equal(t, "tg_id\n", string(content))

		writeJSON(w, map[string]any{"ok": true, "result": map[string]any{"message_id": 8, "chat": map[string]any{"id": 7}}})
	})

	msg, err := c.SendDocument(context.Background(), 7, "export.csv", []byte("tg_id\n"), "2 rows")
	require.NoError(t, err)
	assert.Equal(t, int64(8), msg.MessageID)
}

func TestSetMyCommands(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		var cmds []BotCommand
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("commands")), &cmds))
		assert.Equal(t, []BotCommand{{Command: "whitelist", Description: "Add your wallet"}}, cmds)
		writeJSON(w, map[string]any{"ok": true, "result": true})
	})

	require.NoError(t, c.SetMyCommands(context.Background(), []BotCommand{{Command: "whitelist", Description: "Add your wallet"}}))
}

func TestAPIErrorsAreTelegramAPIErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		writeJSON(w, map[string]any{
			"ok":          false,
			"error_code":  429,
			"description": "Too Many Requests: retry after 3",
			"parameters":  map[string]any{"retry_after": 3},
		})
	})

	_, err := c.SendMessage(context.Background(), 1, "hi")
	require.Error(t, err)
	assert.True(t, apperrors.IsTelegramAPI(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Code)
	assert.Equal(t, 3*time.Second, apiErr.RetryAfter)
}

func TestUndecodableResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := c.GetMe(context.Background())
	assert.True(t, apperrors.IsTelegramAPI(err))
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetUpdates(ctx, 0, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ann", (&User{FirstName: "Ann"}).DisplayName())
	assert.Equal(t, "Lee", (&User{LastName: "Lee"}).DisplayName())
	assert.Equal(t, "", (*User)(nil).DisplayName())
}
