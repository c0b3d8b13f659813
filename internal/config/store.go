// Package config persists per-guild bot settings: the channels the like
// command is restricted to and the auto-like worklist replayed by the
// background job.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// AutoLikeEntry is one saved uid/server pair scheduled for periodic
// re-liking.
type AutoLikeEntry struct {
	UID    string `json:"uid"`
	Server string `json:"server"`
}

// ServerConfig holds the settings for a single guild. An empty
// LikeChannels slice means the like command is allowed everywhere.
type ServerConfig struct {
	LikeChannels []string        `json:"like_channels"`
	AutoLike     []AutoLikeEntry `json:"auto_like"`
}

type fileFormat struct {
	Servers map[string]ServerConfig `json:"servers"`
}

// Store is the durable per-guild settings store. All mutations rewrite the
// full snapshot to disk through a temp file and an atomic rename, so the
// canonical file is always a complete valid document.
type Store struct {
	mu      sync.Mutex
	path    string
	log     *slog.Logger
	servers map[string]ServerConfig
}

// Load reads the store from path. A missing file initializes an empty
// store and persists it; a corrupt file is reset to defaults with a
// warning rather than failing startup.
func Load(path string, log *slog.Logger) (*Store, error) {
	s := &Store{
		path:    path,
		log:     log,
		servers: make(map[string]ServerConfig),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("initializing config file: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		log.Warn("config file is corrupt, resetting to defaults", "path", path, "error", err)
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("resetting config file: %w", err)
		}
		return s, nil
	}

	if f.Servers != nil {
		s.servers = f.Servers
	}
	return s, nil
}

// Get returns the settings for a guild, a zero-value default when the
// guild has never been configured. The returned value is a copy; defaults
// are not persisted until the first mutation.
func (s *Store) Get(guildID string) ServerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyConfig(s.servers[guildID])
}

// ChannelAllowed reports whether the like command may run in channelID.
// Guilds with no configured channels allow every channel.
func (s *Store) ChannelAllowed(guildID, channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.servers[guildID]
	if len(cfg.LikeChannels) == 0 {
		return true
	}
	for _, id := range cfg.LikeChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

// ToggleLikeChannel adds channelID to the guild's allow-list, or removes
// it if already present. Returns the resulting membership.
func (s *Store) ToggleLikeChannel(guildID, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.servers[guildID]
	for i, id := range cfg.LikeChannels {
		if id == channelID {
			cfg.LikeChannels = append(cfg.LikeChannels[:i], cfg.LikeChannels[i+1:]...)
			s.servers[guildID] = cfg
			return false, s.persistLocked()
		}
	}
	cfg.LikeChannels = append(cfg.LikeChannels, channelID)
	s.servers[guildID] = cfg
	return true, s.persistLocked()
}

// AddAutoLike appends a uid/server pair to the guild's worklist. Returns
// false without persisting when an identical pair already exists.
func (s *Store) AddAutoLike(guildID, uid, server string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.servers[guildID]
	for _, e := range cfg.AutoLike {
		if e.UID == uid && e.Server == server {
			return false, nil
		}
	}
	cfg.AutoLike = append(cfg.AutoLike, AutoLikeEntry{UID: uid, Server: server})
	s.servers[guildID] = cfg
	return true, s.persistLocked()
}

// RemoveAutoLike removes every worklist entry with the given uid. Returns
// false when no entry matched.
func (s *Store) RemoveAutoLike(guildID, uid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.servers[guildID]
	kept := cfg.AutoLike[:0]
	for _, e := range cfg.AutoLike {
		if e.UID != uid {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(cfg.AutoLike) {
		return false, nil
	}
	cfg.AutoLike = kept
	s.servers[guildID] = cfg
	return true, s.persistLocked()
}

// Snapshot returns a deep copy of every guild's settings, for iteration
// outside the store lock (the replay sweep).
func (s *Store) Snapshot() map[string]ServerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]ServerConfig, len(s.servers))
	for guildID, cfg := range s.servers {
		out[guildID] = copyConfig(cfg)
	}
	return out
}

// persistLocked writes the full store to a temp file in the same directory
// and renames it over the canonical path. Callers must hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(fileFormat{Servers: s.servers}, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp config file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp config file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}

func copyConfig(cfg ServerConfig) ServerConfig {
	out := ServerConfig{}
	if len(cfg.LikeChannels) > 0 {
		out.LikeChannels = append([]string(nil), cfg.LikeChannels...)
	}
	if len(cfg.AutoLike) > 0 {
		out.AutoLike = append([]AutoLikeEntry(nil), cfg.AutoLike...)
	}
	return out
}
