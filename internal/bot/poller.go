package bot

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"whitelist-bot/internal/service/telegram"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

type Updater interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
}

// Poller long-polls getUpdates and feeds the dispatcher.
type Poller struct {
	updater     Updater
	dispatcher  *Dispatcher
	botUsername string
	timeout     time.Duration
	minBackoff  time.Duration
	maxBackoff  time.Duration
	log         zerolog.Logger
}

func NewPoller(updater Updater, dispatcher *Dispatcher, botUsername string, timeout time.Duration, log zerolog.Logger) *Poller {
	return &Poller{
		updater:     updater,
		dispatcher:  dispatcher,
		botUsername: botUsername,
		timeout:     timeout,
		minBackoff:  minBackoff,
		maxBackoff:  maxBackoff,
		log:         log,
	}
}

// Run polls until ctx is cancelled, then waits for queued events to finish.
// Events already received are handled to completion even after cancellation.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info().Dur("timeout", p.timeout).Msg("Starting update poller...")
	defer p.dispatcher.Wait()

	handleCtx := context.WithoutCancel(ctx)
	var offset int64
	backoff := p.minBackoff

	for {
		if ctx.Err() != nil {
			p.log.Info().Msg("Stopping update poller...")
			return nil
		}

		updates, err := p.updater.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait := backoff
			var apiErr *telegram.APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > wait {
				wait = apiErr.RetryAfter
			}
			p.log.Warn().Err(err).Dur("backoff", wait).Msg("getUpdates failed")
			if !sleep(ctx, wait) {
				continue
			}
			backoff = min(backoff*2, p.maxBackoff)
			continue
		}
		backoff = p.minBackoff

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			ev, ok := ParseUpdate(u, p.botUsername)
			if !ok {
				continue
			}
			p.log.Debug().Int64("update_id", u.UpdateID).Int64("user_id", ev.UserID).Str("event", ev.Kind.String()).Msg("Dispatching update")
			p.dispatcher.Dispatch(handleCtx, ev)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
