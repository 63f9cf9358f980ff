// Package clinic stores the clinic profile shown on reports and in emails.
package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const profileKey = "clinic:profile"

// Profile is the clinic's public identity.
type Profile struct {
	Name               string `json:"name"`
	Address            string `json:"address"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	Timezone           string `json:"timezone"`
	NotifyOnBooking    bool   `json:"notify_on_booking"`
	NotifyOnReschedule bool   `json:"notify_on_reschedule"`
}

// DefaultProfile is served until staff save a profile.
func DefaultProfile(timezone string) *Profile {
	if timezone == "" {
		timezone = "Asia/Manila"
	}
	return &Profile{
		Name:               "Dental Clinic",
		Timezone:           timezone,
		NotifyOnBooking:    true,
		NotifyOnReschedule: true,
	}
}

// Location resolves the profile timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	if p == nil || strings.TrimSpace(p.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks fields that would break downstream formatting.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("clinic: name is required")
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("clinic: unknown timezone %q", p.Timezone)
	}
	return nil
}

// Store reads and writes the clinic profile.
type Store interface {
	Get(ctx context.Context) (*Profile, error)
	Set(ctx context.Context, p *Profile) error
}

// RedisStore keeps the profile as a JSON value.
type RedisStore struct {
	redis    *redis.Client
	timezone string
}

// NewRedisStore creates a profile store. timezone seeds the default profile.
func NewRedisStore(redisClient *redis.Client, timezone string) *RedisStore {
	return &RedisStore{redis: redisClient, timezone: timezone}
}

// Get retrieves the profile, returning the default if none was saved.
func (s *RedisStore) Get(ctx context.Context) (*Profile, error) {
	data, err := s.redis.Get(ctx, profileKey).Bytes()
	if err == redis.Nil {
		return DefaultProfile(s.timezone), nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("clinic: unmarshal profile: %w", err)
	}
	return &p, nil
}

// Set saves the profile.
func (s *RedisStore) Set(ctx context.Context, p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("clinic: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, profileKey, data, 0).Err(); err != nil {
		return fmt.Errorf("clinic: set profile: %w", err)
	}
	return nil
}

// MemoryStore is used when Redis is not configured.
type MemoryStore struct {
	mu       sync.RWMutex
	profile  *Profile
	timezone string
}

func NewMemoryStore(timezone string) *MemoryStore {
	return &MemoryStore{timezone: timezone}
}

func (s *MemoryStore) Get(ctx context.Context) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return DefaultProfile(s.timezone), nil
	}
	p := *s.profile
	return &p, nil
}

func (s *MemoryStore) Set(ctx context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profile = &cp
	return nil
}
