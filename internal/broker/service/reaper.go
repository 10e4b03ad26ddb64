package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mona-chen/jean/internal/broker/rooms"
	"github.com/mona-chen/jean/pkg/ledger"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultReaperSchedule runs a sweep every five minutes.
	DefaultReaperSchedule = "@every 5m"

	// ExpiryReason is sent to the ledger when a transfer times out.
	ExpiryReason = "system_expiry"

	// SystemActor is the X-TMCP-User-ID used for broker-initiated rejects.
	SystemActor = "system"
)

// CacheSweeper is implemented by caches that need expired entries purged
// explicitly.
type CacheSweeper interface {
	Sweep() int
}

// ExpiryReaper rejects transfers the recipient never answered so the sender
// is refunded. Sweeps are scheduled with cron and never overlap.
type ExpiryReaper struct {
	Ledger   Ledger
	Rooms    Rooms
	Cache    CacheSweeper // optional
	Logger   *slog.Logger
	Schedule string
	Timeout  time.Duration
	Now      func() time.Time

	cron *cron.Cron
}

// NewExpiryReaper returns a reaper on schedule, defaulting to
// DefaultReaperSchedule.
func NewExpiryReaper(l Ledger, r Rooms, logger *slog.Logger, schedule string) *ExpiryReaper {
	if schedule == "" {
		schedule = DefaultReaperSchedule
	}
	return &ExpiryReaper{
		Ledger:   l,
		Rooms:    r,
		Logger:   logger,
		Schedule: schedule,
		Timeout:  time.Minute,
	}
}

// Start schedules the sweep. It fails only on an invalid schedule.
func (r *ExpiryReaper) Start() error {
	logger := cronLogger{r.Logger}
	r.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := r.cron.AddFunc(r.Schedule, r.run); err != nil {
		return err
	}
	r.cron.Start()
	r.Logger.Info("expiry reaper started", "schedule", r.Schedule)
	return nil
}

// Stop waits for a running sweep to finish or ctx to end.
func (r *ExpiryReaper) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
	r.Logger.Info("expiry reaper stopped")
}

func (r *ExpiryReaper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	if r.Cache != nil {
		if n := r.Cache.Sweep(); n > 0 {
			r.Logger.Debug("purged expired cache entries", "count", n)
		}
	}
	if _, err := r.Sweep(ctx); err != nil {
		r.Logger.Error("expiry sweep failed", "error", err)
	}
}

// Sweep force-rejects every expired transfer and returns the ones the
// ledger rejected in this run. Transfers already final are skipped and a
// failure on one transfer does not stop the others.
func (r *ExpiryReaper) Sweep(ctx context.Context) ([]ledger.Transfer, error) {
	expired, err := r.Ledger.ExpiredTransfers(ctx)
	if err != nil {
		return nil, err
	}

	var rejected []ledger.Transfer
	for _, t := range expired {
		if ctx.Err() != nil {
			break
		}
		res, err := r.Ledger.Reject(ctx, t.TransferID, SystemActor, ExpiryReason)
		switch {
		case ledger.IsAlreadyFinal(err):
			r.Logger.Debug("expired transfer already final", "transfer_id", t.TransferID)
			continue
		case err != nil:
			r.Logger.Warn("failed to reject expired transfer", "transfer_id", t.TransferID, "error", err)
			continue
		case res.Status != ledger.StatusRejected:
			r.Logger.Debug("expired transfer not rejected", "transfer_id", t.TransferID, "status", res.Status)
			continue
		}

		roomID := res.RoomID
		if roomID == "" {
			roomID = t.RoomID
		}
		if roomID != "" {
			r.announce(ctx, roomID, res)
		}
		rejected = append(rejected, *res)
	}

	if len(expired) > 0 {
		r.Logger.Info("expiry sweep completed", "expired", len(expired), "rejected", len(rejected))
	}
	return rejected, nil
}

func (r *ExpiryReaper) announce(ctx context.Context, roomID string, t *ledger.Transfer) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	rejectedAt := now().UTC().Format(time.RFC3339)
	if t.RejectedAt != nil {
		rejectedAt = t.RejectedAt.UTC().Format(time.RFC3339)
	}

	content := rooms.NewStatusContent(t.TransferID, ledger.StatusExpired, rejectedAt)
	content.RoomID = roomID
	content.RejectedAt = rejectedAt
	content.RefundInitiated = true

	if _, err := r.Rooms.Publish(ctx, roomID, rooms.EventTypeP2PStatus, content); err != nil {
		r.Logger.Warn("failed to publish expiry", "transfer_id", t.TransferID, "room_id", roomID, "error", err)
	}
}

// cronLogger routes cron's logging through slog.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
