package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	apperrors "whitelist-bot/internal/common/errors"
	"whitelist-bot/internal/platform/metrics"
	"whitelist-bot/internal/service/export"
	"whitelist-bot/internal/service/registration"
	"whitelist-bot/internal/service/telegram"
)

const (
	MsgNotAuthorized = "Not authorized."
	MsgExportFailed  = "⚠️ Export failed. Please try again later."
	exportCaption    = "Whitelist export: %d wallets"
)

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (*telegram.Message, error)
	SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) (*telegram.Message, error)
}

type Conversation interface {
	Handle(ctx context.Context, ev registration.Event) string
}

type Exporter interface {
	Export(ctx context.Context, requesterID int64) (*export.Snapshot, error)
}

// Handler routes a parsed event to the conversation or the exporter and
// sends the reply.
type Handler struct {
	conversation Conversation
	exporter     Exporter
	messenger    Messenger
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

func NewHandler(conversation Conversation, exporter Exporter, messenger Messenger, m *metrics.Metrics, log zerolog.Logger) (*Handler, error) {
	if conversation == nil || exporter == nil || messenger == nil {
		return nil, errors.New("conversation, exporter and messenger are required")
	}
	return &Handler{
		conversation: conversation,
		exporter:     exporter,
		messenger:    messenger,
		metrics:      m,
		log:          log,
	}, nil
}

// Handle matches HandleFunc.
func (h *Handler) Handle(ctx context.Context, ev registration.Event) {
	var reply string
	if ev.Kind == registration.EventExport {
		h.metrics.IncEvent(ev.Kind.String())
		reply = h.export(ctx, ev)
	} else {
		reply = h.conversation.Handle(ctx, ev)
	}
	if reply == "" {
		return
	}

	if _, err := h.messenger.SendMessage(ctx, ev.ChatID, reply); err != nil {
		h.log.Error().Err(err).Int64("user_id", ev.UserID).Int64("chat_id", ev.ChatID).Msg("Failed to send reply")
	}
}

func (h *Handler) export(ctx context.Context, ev registration.Event) string {
	snap, err := h.exporter.Export(ctx, ev.UserID)
	switch {
	case apperrors.IsUnauthorized(err):
		return MsgNotAuthorized
	case err != nil:
		h.log.Error().Err(err).Int64("user_id", ev.UserID).Msg("Export failed")
		return MsgExportFailed
	}

	caption := fmt.Sprintf(exportCaption, snap.Rows)
	if _, err := h.messenger.SendDocument(ctx, ev.ChatID, snap.Filename, snap.Content, caption); err != nil {
		h.log.Error().Err(err).Int64("user_id", ev.UserID).Str("filename", snap.Filename).Msg("Failed to send export")
		return MsgExportFailed
	}
	return ""
}
