package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	apperrors "whitelist-bot/internal/common/errors"
	"whitelist-bot/internal/common/validation"
	domain "whitelist-bot/internal/domain/wallet"
	"whitelist-bot/internal/platform/metrics"
)

// WalletStore is the part of the wallet service the conversation needs.
type WalletStore interface {
	Get(ctx context.Context, userID int64) (*domain.Record, error)
	Upsert(ctx context.Context, rec *domain.Record) error
}

// Controller drives the per-user registration conversation.
type Controller struct {
	store    WalletStore
	sessions *Sessions
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

type Option func(*Controller)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func NewController(store WalletStore, sessions *Sessions, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("wallet store is required")
	}
	if sessions == nil {
		return nil, errors.New("session table is required")
	}
	c := &Controller{store: store, sessions: sessions, log: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Sessions exposes the session table, mostly for tests.
func (c *Controller) Sessions() *Sessions { return c.sessions }

// Handle applies ev to the user's session and returns the reply text. An
// empty reply means nothing should be sent.
func (c *Controller) Handle(ctx context.Context, ev Event) string {
	c.metrics.IncEvent(ev.Kind.String())

	reply := c.route(ctx, ev)
	c.log.Debug().
		Int64("user_id", ev.UserID).
		Str("event", ev.Kind.String()).
		Str("state", c.sessions.State(ev.UserID).String()).
		Bool("replied", reply != "").
		Msg("turn handled")
	return reply
}

func (c *Controller) route(ctx context.Context, ev Event) string {
	switch ev.Kind {
	case EventStart:
		return MsgStart
	case EventRegister:
		return c.register(ctx, ev)
	case EventEdit:
		return c.edit(ctx, ev)
	case EventQuery:
		return c.query(ctx, ev)
	case EventCancel:
		if c.sessions.Clear(ev.UserID) {
			return MsgCancelled
		}
		return MsgNothingToCancel
	case EventText:
		return c.submit(ctx, ev)
	default:
		return ""
	}
}

func (c *Controller) register(ctx context.Context, ev Event) string {
	rec, err := c.store.Get(ctx, ev.UserID)
	if err != nil {
		c.logStorageError(err, ev, "register lookup")
		return MsgLookupFailure
	}
	if rec != nil {
		c.sessions.Clear(ev.UserID)
		return fmt.Sprintf(MsgAlreadyRegistered, rec.WalletAddress)
	}
	c.sessions.Await(ev.UserID)
	return MsgPromptAddress
}

func (c *Controller) edit(ctx context.Context, ev Event) string {
	rec, err := c.store.Get(ctx, ev.UserID)
	if err != nil {
		c.logStorageError(err, ev, "edit lookup")
		return MsgLookupFailure
	}
	current := MsgNoCurrent
	if rec != nil {
		current = rec.WalletAddress
	}
	c.sessions.Await(ev.UserID)
	return fmt.Sprintf(MsgEditPrompt, current)
}

func (c *Controller) query(ctx context.Context, ev Event) string {
	rec, err := c.store.Get(ctx, ev.UserID)
	if err != nil {
		c.logStorageError(err, ev, "query lookup")
		return MsgLookupFailure
	}
	if rec == nil {
		return MsgNoWallet
	}
	return fmt.Sprintf(MsgYourWallet, rec.WalletAddress)
}

func (c *Controller) submit(ctx context.Context, ev Event) string {
	if c.sessions.State(ev.UserID) != AwaitingAddress {
		// Free text outside a pending registration, or a duplicate of a
		// submission that is already being written.
		return ""
	}
	c.sessions.Touch(ev.UserID)

	if !validation.IsValidAddress(ev.Text) {
		c.metrics.IncSubmission(metrics.SubmissionRejected)
		return MsgInvalidAddress
	}
	if !c.sessions.Claim(ev.UserID) {
		return ""
	}

	rec := &domain.Record{
		UserID:        ev.UserID,
		Username:      ev.Username,
		DisplayName:   ev.DisplayName,
		WalletAddress: validation.NormalizeAddress(ev.Text),
	}
	if err := c.store.Upsert(ctx, rec); err != nil {
		c.sessions.Release(ev.UserID)
		if apperrors.IsValidation(err) {
			c.metrics.IncSubmission(metrics.SubmissionRejected)
			return MsgInvalidAddress
		}
		c.metrics.IncSubmission(metrics.SubmissionFailed)
		c.logStorageError(err, ev, "submit")
		return MsgStorageFailure
	}

	c.sessions.Clear(ev.UserID)
	c.metrics.IncSubmission(metrics.SubmissionAccepted)
	c.log.Info().
		Int64("user_id", ev.UserID).
		Str("username", ev.Username).
		Str("wallet", rec.WalletAddress).
		Msg("Wallet registered")
	return MsgAdded
}

func (c *Controller) logStorageError(err error, ev Event, op string) {
	c.log.Error().
		Err(err).
		Int64("user_id", ev.UserID).
		Str("op", op).
		Msg("Wallet store failure")
}
