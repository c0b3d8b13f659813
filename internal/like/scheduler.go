// Package like holds the core request flow: the scheduler that gates and
// dispatches interactive like requests, and the background job that
// replays the saved auto-like worklists.
package like

import (
	"context"
	"log/slog"
	"time"

	"github.com/ffcommunity/likebot/internal/config"
	"github.com/ffcommunity/likebot/internal/freefire"
	"github.com/ffcommunity/likebot/internal/metrics"
	"github.com/ffcommunity/likebot/internal/ratelimit"
)

const (
	requestTimeout = 10 * time.Second
	minUIDLength   = 6
)

// LikeAPI is the upstream client surface the scheduler and replay job
// depend on.
type LikeAPI interface {
	SendLike(ctx context.Context, uid, server string) freefire.Result
}

// Request is one interactive like request as received from the chat layer.
type Request struct {
	GuildID   string
	ChannelID string
	UserID    string
	UID       string
	Server    string
}

// OutcomeKind is the terminal branch a request ended on.
type OutcomeKind int

const (
	DenyInput OutcomeKind = iota
	DenyChannel
	DenyFormat
	DenyQuota
	DenyCooldown
	Completed
)

func (k OutcomeKind) String() string {
	switch k {
	case DenyInput:
		return "deny_input"
	case DenyChannel:
		return "deny_channel"
	case DenyFormat:
		return "deny_format"
	case DenyQuota:
		return "deny_quota"
	case DenyCooldown:
		return "deny_cooldown"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Outcome is the result of one request. RetryAfter is set on the rate
// denials, Remaining and Like on Completed.
type Outcome struct {
	Kind       OutcomeKind
	RetryAfter time.Duration
	Remaining  int
	Like       freefire.Result
}

// Scheduler runs the interactive like flow: channel check, uid format
// check, quota reservation, upstream call.
type Scheduler struct {
	log     *slog.Logger
	store   *config.Store
	limiter *ratelimit.Limiter
	client  LikeAPI
}

func NewScheduler(log *slog.Logger, store *config.Store, limiter *ratelimit.Limiter, client LikeAPI) *Scheduler {
	return &Scheduler{
		log:     log,
		store:   store,
		limiter: limiter,
		client:  client,
	}
}

// Request processes one interactive like request, terminal on the first
// applicable branch. Quota consumed at the rate check is not refunded if
// the upstream call fails.
func (s *Scheduler) Request(ctx context.Context, req Request) Outcome {
	if req.UID == "" || req.Server == "" {
		return s.done(Outcome{Kind: DenyInput})
	}

	if !s.store.ChannelAllowed(req.GuildID, req.ChannelID) {
		return s.done(Outcome{Kind: DenyChannel})
	}

	if !ValidUID(req.UID) {
		return s.done(Outcome{Kind: DenyFormat})
	}

	decision := s.limiter.CheckAndReserve(req.UserID, time.Now())
	switch decision.Verdict {
	case ratelimit.DenyQuota:
		metrics.RateLimitHits.WithLabelValues("quota").Inc()
		return s.done(Outcome{Kind: DenyQuota, RetryAfter: decision.RetryAfter})
	case ratelimit.DenyCooldown:
		metrics.RateLimitHits.WithLabelValues("cooldown").Inc()
		return s.done(Outcome{Kind: DenyCooldown, RetryAfter: decision.RetryAfter})
	}

	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	start := time.Now()
	result := s.client.SendLike(callCtx, req.UID, req.Server)
	metrics.UpstreamLatency.WithLabelValues("interactive").Observe(time.Since(start).Seconds())

	s.log.InfoContext(ctx, "like request processed",
		"guild_id", req.GuildID,
		"user_id", req.UserID,
		"uid", req.UID,
		"server", req.Server,
		"status", result.Status.String(),
		"remaining", decision.Remaining,
	)

	return s.done(Outcome{Kind: Completed, Remaining: decision.Remaining, Like: result})
}

func (s *Scheduler) done(o Outcome) Outcome {
	label := o.Kind.String()
	if o.Kind == Completed {
		label = o.Like.Status.String()
	}
	metrics.LikeRequestsTotal.WithLabelValues(label).Inc()
	return o
}

// ValidUID reports whether uid looks like a Free Fire player id: digits
// only, at least six of them.
func ValidUID(uid string) bool {
	if len(uid) < minUIDLength {
		return false
	}
	for _, r := range uid {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
