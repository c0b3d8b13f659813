// Package bot is the Discord-facing layer: it registers the slash
// commands, translates interactions into scheduler/store calls, and
// renders outcomes as messages and embeds.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ffcommunity/likebot/internal/config"
	"github.com/ffcommunity/likebot/internal/freefire"
	"github.com/ffcommunity/likebot/internal/like"
	"github.com/ffcommunity/likebot/internal/ratelimit"
	"github.com/samber/lo"
)

const embedColor = 0x2ECC71

type Config struct {
	// GuildID scopes command registration to one guild for instant
	// updates; empty registers globally.
	GuildID string
	// AdminIDs is the static allow-list of user IDs that may run admin
	// commands regardless of their Discord permissions.
	AdminIDs []string
}

type Bot struct {
	log       *slog.Logger
	session   DiscordSession
	scheduler LikeScheduler
	store     *config.Store
	limiter   *ratelimit.Limiter
	config    Config

	ready     chan struct{}
	readyOnce sync.Once
}

func New(
	log *slog.Logger,
	session DiscordSession,
	scheduler LikeScheduler,
	store *config.Store,
	limiter *ratelimit.Limiter,
	config Config,
) *Bot {
	return &Bot{
		log:       log,
		session:   session,
		scheduler: scheduler,
		store:     store,
		limiter:   limiter,
		config:    config,
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the Discord gateway reports the session ready. The
// replay job waits on it before its first sweep.
func (b *Bot) Ready() <-chan struct{} {
	return b.ready
}

// Run connects to Discord, registers the commands, and blocks until ctx
// is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.InfoContext(ctx, "connected to Discord", "username", r.User.Username, "discriminator", r.User.Discriminator)
		b.readyOnce.Do(func() { close(b.ready) })
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening Discord connection: %w", err)
	}

	if err := b.registerCommands(ctx); err != nil {
		b.session.Close()
		return fmt.Errorf("registering commands: %w", err)
	}

	b.log.InfoContext(ctx, "bot is running, press Ctrl+C to stop")
	<-ctx.Done()

	b.session.Close()
	b.log.Info("bot shut down")
	return nil
}

func (b *Bot) registerCommands(ctx context.Context) error {
	guildID := b.config.GuildID
	if guildID != "" {
		b.log.InfoContext(ctx, "registering commands to guild", "guild_id", guildID)
	} else {
		b.log.InfoContext(ctx, "registering commands globally (may take up to 1 hour to propagate)")
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.GetUserID(), guildID, commands)
	if err != nil {
		return fmt.Errorf("bulk overwrite commands: %w", err)
	}
	b.log.InfoContext(ctx, "registered commands", "count", len(commands))
	return nil
}

func buildServerChoices() []*discordgo.ApplicationCommandOptionChoice {
	return lo.Map(freefire.ValidServers, func(server string, _ int) *discordgo.ApplicationCommandOptionChoice {
		return &discordgo.ApplicationCommandOptionChoice{
			Name:  server,
			Value: server,
		}
	})
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "like",
		Description: "Send a like to a Free Fire player",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "server",
				Description: "Game server region",
				Required:    true,
				Choices:     buildServerChoices(),
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "uid",
				Description: "Player UID (numeric, at least 6 digits)",
				Required:    true,
			},
		},
	},
	{
		Name:        "setlikechannel",
		Description: "Toggle a channel on the like command allow-list (admin only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: "Channel to allow or disallow",
				Required:    true,
			},
		},
	},
	{
		Name:        "autolike",
		Description: "Manage the auto-like list for this server",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Add a UID to the auto-like list",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "uid",
						Description: "Player UID",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "server",
						Description: "Game server region",
						Required:    true,
						Choices:     buildServerChoices(),
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Remove a UID from the auto-like list",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "uid",
						Description: "Player UID",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Show the auto-like list",
			},
		},
	},
	{
		Name:        "likestats",
		Description: "Show how many likes you have left today",
	},
}

type handlerResult struct {
	Response  string
	Embed     *discordgo.MessageEmbed
	Ephemeral bool
	Err       error
}

type userError struct {
	Err error
}

func (e *userError) Error() string {
	return e.Err.Error()
}

func (e *userError) Unwrap() error {
	return e.Err
}

func newUserError(err error) *userError {
	return &userError{Err: err}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	b.handleCommand(i)
}

func (b *Bot) handleCommand(i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()
	var result handlerResult
	cmd := i.ApplicationCommandData().Name

	switch cmd {
	case "like":
		result = b.handleLike(ctx, i)
	case "setlikechannel":
		result = b.handleSetLikeChannel(i)
	case "autolike":
		result = b.handleAutoLike(i)
	case "likestats":
		result = b.handleLikeStats(i)
	}

	b.respond(i, result)

	if result.Err == nil {
		return
	}

	var ue *userError
	if errors.As(result.Err, &ue) {
		b.log.WarnContext(ctx, "user error", "command", cmd, "error", result.Err, "channel_id", i.ChannelID)
	} else {
		b.log.ErrorContext(ctx, "command failed", "command", cmd, "error", result.Err, "channel_id", i.ChannelID)
	}
}

func getOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

// interactionUserID works for both guild and DM interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// isAdmin grants admin commands to users carrying the Administrator
// permission and to the static allow-list.
func (b *Bot) isAdmin(i *discordgo.InteractionCreate) bool {
	if i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return lo.Contains(b.config.AdminIDs, interactionUserID(i))
}

func (b *Bot) handleLike(ctx context.Context, i *discordgo.InteractionCreate) handlerResult {
	options := i.ApplicationCommandData().Options
	server := getOption(options, "server")
	uid := getOption(options, "uid")

	if i.GuildID == "" {
		return handlerResult{
			Response:  "❌ This command can only be used in a server.",
			Ephemeral: true,
		}
	}

	outcome := b.scheduler.Request(ctx, like.Request{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		UserID:    interactionUserID(i),
		UID:       uid,
		Server:    server,
	})

	switch outcome.Kind {
	case like.DenyInput:
		return handlerResult{
			Response:  "❌ You must provide both UID and server.",
			Ephemeral: true,
			Err:       newUserError(errors.New("missing uid or server")),
		}
	case like.DenyChannel:
		return handlerResult{
			Response:  "❌ Like commands are not allowed in this channel.",
			Ephemeral: true,
			Err:       newUserError(errors.New("channel not on allow-list")),
		}
	case like.DenyFormat:
		return handlerResult{
			Response:  "❌ Invalid UID. It must be numeric and at least 6 digits.",
			Ephemeral: true,
			Err:       newUserError(fmt.Errorf("malformed uid %q", uid)),
		}
	case like.DenyQuota:
		return handlerResult{
			Response:  fmt.Sprintf("⏳ You've used all your likes for today. Try again in **%s**.", formatDuration(outcome.RetryAfter)),
			Ephemeral: true,
		}
	case like.DenyCooldown:
		return handlerResult{
			Response:  fmt.Sprintf("⏳ Slow down! Try again in **%d seconds**.", int(outcome.RetryAfter.Seconds())+1),
			Ephemeral: true,
		}
	}

	switch outcome.Like.Status {
	case freefire.StatusSuccess:
		return handlerResult{Embed: formatLikeEmbed(uid, server, outcome)}
	case freefire.StatusAlreadyMaxed:
		return handlerResult{
			Response: fmt.Sprintf("⚠️ UID **%s** has already received the maximum likes for today.", uid),
		}
	case freefire.StatusNotFound:
		return handlerResult{
			Response: fmt.Sprintf("❌ Player **%s** not found on server **%s**.", uid, server),
		}
	case freefire.StatusTimeout:
		return handlerResult{
			Response: "❌ The like service took too long to respond. Please try again later.",
		}
	default:
		return handlerResult{
			Response: "❌ The like service is having trouble right now. Please try again later.",
		}
	}
}

func (b *Bot) handleSetLikeChannel(i *discordgo.InteractionCreate) handlerResult {
	if !b.isAdmin(i) {
		return handlerResult{
			Response:  "🔒 You need administrator permissions for this command.",
			Ephemeral: true,
			Err:       newUserError(errors.New("setlikechannel by non-admin")),
		}
	}

	options := i.ApplicationCommandData().Options
	var channelID string
	for _, opt := range options {
		if opt.Name == "channel" {
			channelID = opt.ChannelValue(nil).ID
		}
	}
	if channelID == "" {
		return handlerResult{
			Response:  "❌ Provide a channel.",
			Ephemeral: true,
			Err:       newUserError(errors.New("missing channel option")),
		}
	}

	enabled, err := b.store.ToggleLikeChannel(i.GuildID, channelID)
	if err != nil {
		return handlerResult{
			Response: "❌ Failed to save the setting. Please try again later.",
			Err:      fmt.Errorf("toggling like channel %s: %w", channelID, err),
		}
	}

	if enabled {
		return handlerResult{Response: fmt.Sprintf("✅ <#%s> added to the like channel list.", channelID)}
	}
	return handlerResult{Response: fmt.Sprintf("✅ <#%s> removed from the like channel list.", channelID)}
}

func (b *Bot) handleAutoLike(i *discordgo.InteractionCreate) handlerResult {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return handlerResult{
			Response:  "❌ Use `add`, `remove`, or `list`.",
			Ephemeral: true,
		}
	}
	sub := options[0]

	switch sub.Name {
	case "add":
		uid := getOption(sub.Options, "uid")
		server := getOption(sub.Options, "server")
		if !like.ValidUID(uid) {
			return handlerResult{
				Response:  "❌ Invalid UID. It must be numeric and at least 6 digits.",
				Ephemeral: true,
				Err:       newUserError(fmt.Errorf("malformed uid %q", uid)),
			}
		}
		if !freefire.IsValidServer(server) {
			return handlerResult{
				Response:  fmt.Sprintf("❌ Invalid server: %s", server),
				Ephemeral: true,
				Err:       newUserError(fmt.Errorf("invalid server %q", server)),
			}
		}
		added, err := b.store.AddAutoLike(i.GuildID, uid, server)
		if err != nil {
			return handlerResult{
				Response: "❌ Failed to save the auto-like list. Please try again later.",
				Err:      fmt.Errorf("adding auto-like entry: %w", err),
			}
		}
		if !added {
			return handlerResult{
				Response:  "⚠️ That UID is already in the auto-like list.",
				Ephemeral: true,
			}
		}
		return handlerResult{Response: fmt.Sprintf("✅ UID **%s** (%s) added to the auto-like list.", uid, server)}

	case "remove":
		uid := getOption(sub.Options, "uid")
		removed, err := b.store.RemoveAutoLike(i.GuildID, uid)
		if err != nil {
			return handlerResult{
				Response: "❌ Failed to save the auto-like list. Please try again later.",
				Err:      fmt.Errorf("removing auto-like entry: %w", err),
			}
		}
		if !removed {
			return handlerResult{
				Response:  "⚠️ UID not found in the auto-like list.",
				Ephemeral: true,
			}
		}
		return handlerResult{Response: fmt.Sprintf("✅ UID **%s** removed from the auto-like list.", uid)}

	case "list":
		entries := b.store.Get(i.GuildID).AutoLike
		if len(entries) == 0 {
			return handlerResult{Response: "📭 No UIDs in the auto-like list."}
		}
		lines := lo.Map(entries, func(e config.AutoLikeEntry, _ int) string {
			return fmt.Sprintf("• **%s** (%s)", e.UID, e.Server)
		})
		return handlerResult{Embed: &discordgo.MessageEmbed{
			Title:       "📌 Auto-Like List",
			Description: strings.Join(lines, "\n"),
			Color:       embedColor,
		}}
	}

	return handlerResult{
		Response:  "❌ Invalid action. Use `add`, `remove`, or `list`.",
		Ephemeral: true,
	}
}

func (b *Bot) handleLikeStats(i *discordgo.InteractionCreate) handlerResult {
	used, remaining, resetIn := b.limiter.Stats(interactionUserID(i), time.Now())
	return handlerResult{
		Embed: &discordgo.MessageEmbed{
			Title: "📊 Your Like Stats",
			Color: embedColor,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Used today", Value: fmt.Sprintf("%d", used), Inline: true},
				{Name: "Remaining", Value: fmt.Sprintf("%d", remaining), Inline: true},
				{Name: "Resets in", Value: formatDuration(resetIn), Inline: true},
			},
		},
		Ephemeral: true,
	}
}

func (b *Bot) respond(i *discordgo.InteractionCreate, result handlerResult) {
	data := &discordgo.InteractionResponseData{
		Content: result.Response,
	}
	if result.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{result.Embed}
	}
	if result.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.log.Error("failed to respond to interaction", "error", err)
	}
}

func formatLikeEmbed(uid, server string, outcome like.Outcome) *discordgo.MessageEmbed {
	r := outcome.Like
	return &discordgo.MessageEmbed{
		Title:       "✅ Like Sent!",
		Color:       embedColor,
		Description: fmt.Sprintf("**%s** (UID %s, %s)", r.PlayerName, uid, server),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Likes before", Value: fmt.Sprintf("%d", r.LikesBefore), Inline: true},
			{Name: "Likes added", Value: fmt.Sprintf("+%d", r.LikesAdded), Inline: true},
			{Name: "Likes now", Value: fmt.Sprintf("%d", r.LikesAfter), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d likes remaining today", outcome.Remaining),
		},
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
