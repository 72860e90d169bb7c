// Package session keeps per-device state: the selected venue, the locale
// preference and a few UI flags.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	FlagSidebarCollapsed   = "sidebar_collapsed"
	FlagNotificationsPanel = "notifications_open"
	FlagSoundMuted         = "sound_muted"
)

// State is everything stored for one device.
type State struct {
	VenueID string          `json:"venue_id"`
	Locale  string          `json:"locale"`
	Flags   map[string]bool `json:"flags"`
}

type Store interface {
	Get(ctx context.Context, deviceID string) (State, error)
	SetVenue(ctx context.Context, deviceID, venueID string) error
	SetLocale(ctx context.Context, deviceID, code string) error
	SetFlag(ctx context.Context, deviceID, flag string, on bool) error
	// Locale satisfies locale.Preferences.
	Locale(ctx context.Context, deviceID string) (string, error)
}

// RedisStore keeps one hash per device, expiring after ttl of inactivity.
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(deviceID string) string { return "venue-pos:device:" + deviceID }

func (s *RedisStore) Get(ctx context.Context, deviceID string) (State, error) {
	vals, err := s.rdb.HGetAll(ctx, key(deviceID)).Result()
	if err != nil {
		return State{}, fmt.Errorf("load device state: %w", err)
	}
	st := State{Flags: map[string]bool{}}
	for k, v := range vals {
		switch k {
		case "venue_id":
			st.VenueID = v
		case "locale":
			st.Locale = v
		default:
			if on, err := strconv.ParseBool(v); err == nil {
				st.Flags[k] = on
			}
		}
	}
	return st, nil
}

func (s *RedisStore) set(ctx context.Context, deviceID, field string, value any) error {
	k := key(deviceID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, field, value)
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save device %s: %w", field, err)
	}
	return nil
}

func (s *RedisStore) SetVenue(ctx context.Context, deviceID, venueID string) error {
	return s.set(ctx, deviceID, "venue_id", venueID)
}

func (s *RedisStore) SetLocale(ctx context.Context, deviceID, code string) error {
	return s.set(ctx, deviceID, "locale", code)
}

func (s *RedisStore) SetFlag(ctx context.Context, deviceID, flag string, on bool) error {
	return s.set(ctx, deviceID, flag, strconv.FormatBool(on))
}

func (s *RedisStore) Locale(ctx context.Context, deviceID string) (string, error) {
	v, err := s.rdb.HGet(ctx, key(deviceID), "locale").Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

// MemoryStore is the fallback when Redis is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]State
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{devices: make(map[string]State)} }

func (m *MemoryStore) Get(_ context.Context, deviceID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.devices[deviceID]
	flags := make(map[string]bool, len(st.Flags))
	for k, v := range st.Flags {
		flags[k] = v
	}
	st.Flags = flags
	return st, nil
}

func (m *MemoryStore) update(deviceID string, fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.devices[deviceID]
	if st.Flags == nil {
		st.Flags = map[string]bool{}
	}
	fn(&st)
	m.devices[deviceID] = st
}

func (m *MemoryStore) SetVenue(_ context.Context, deviceID, venueID string) error {
	m.update(deviceID, func(s *State) { s.VenueID = venueID })
	return nil
}

func (m *MemoryStore) SetLocale(_ context.Context, deviceID, code string) error {
	m.update(deviceID, func(s *State) { s.Locale = code })
	return nil
}

func (m *MemoryStore) SetFlag(_ context.Context, deviceID, flag string, on bool) error {
	m.update(deviceID, func(s *State) { s.Flags[flag] = on })
	return nil
}

func (m *MemoryStore) Locale(_ context.Context, deviceID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.devices[deviceID].Locale, nil
}
