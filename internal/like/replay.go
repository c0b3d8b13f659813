package like

import (
	"context"
	"log/slog"
	"time"

	"github.com/ffcommunity/likebot/internal/config"
	"github.com/ffcommunity/likebot/internal/freefire"
	"github.com/ffcommunity/likebot/internal/metrics"
)

const DefaultReplayInterval = 24 * time.Hour

// Replay periodically re-likes every saved worklist entry across all
// guilds. It is system-initiated: it bypasses the rate limiter and the
// channel allow-list, and one entry's failure never stops the sweep.
type Replay struct {
	log      *slog.Logger
	store    *config.Store
	client   LikeAPI
	interval time.Duration
}

func NewReplay(log *slog.Logger, store *config.Store, client LikeAPI, interval time.Duration) *Replay {
	if interval <= 0 {
		interval = DefaultReplayInterval
	}
	return &Replay{
		log:      log,
		store:    store,
		client:   client,
		interval: interval,
	}
}

// Run sweeps once immediately, then once per interval until ctx is
// cancelled. An in-flight sweep is abandoned at the next entry boundary
// on shutdown.
func (r *Replay) Run(ctx context.Context) error {
	r.log.InfoContext(ctx, "auto-like replay started", "interval", r.interval)
	r.Sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-ctx.Done():
			r.log.Info("auto-like replay stopped")
			return nil
		}
	}
}

// Sweep walks every guild's worklist and issues best-effort like calls.
func (r *Replay) Sweep(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.ReplaySweepDuration.Observe(time.Since(start).Seconds())
	}()

	servers := r.store.Snapshot()
	r.log.InfoContext(ctx, "starting auto-like sweep", "guilds", len(servers))

	var attempted int
	for guildID, cfg := range servers {
		for _, entry := range cfg.AutoLike {
			if ctx.Err() != nil {
				r.log.Info("auto-like sweep abandoned", "attempted", attempted)
				return
			}

			callStart := time.Now()
			result := r.client.SendLike(ctx, entry.UID, entry.Server)
			metrics.UpstreamLatency.WithLabelValues("replay").Observe(time.Since(callStart).Seconds())
			metrics.ReplayEntriesTotal.WithLabelValues(result.Status.String()).Inc()
			attempted++

			switch result.Status {
			case freefire.StatusSuccess, freefire.StatusAlreadyMaxed:
				r.log.InfoContext(ctx, "auto-like sent",
					"guild_id", guildID,
					"uid", entry.UID,
					"server", entry.Server,
					"status", result.Status.String(),
				)
			default:
				r.log.WarnContext(ctx, "auto-like failed",
					"guild_id", guildID,
					"uid", entry.UID,
					"server", entry.Server,
					"status", result.Status.String(),
				)
			}
		}
	}

	r.log.InfoContext(ctx, "auto-like sweep complete", "attempted", attempted)
}
