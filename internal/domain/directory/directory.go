// Package directory declares the existence checks the score store consumes
// from the activity/team/user directories. Those directories live in other
// services; this package only owns the contract plus an in-memory
// implementation used for wiring and tests.
package directory

import (
	"context"
	"sync"
)

// Directory answers existence questions about external entities.
type Directory interface {
	ActivityExists(ctx context.Context, activityID string) bool
	SubActivityExists(ctx context.Context, activityID, subActivity string) bool
	UserExists(ctx context.Context, userID string) bool
	TeamExists(ctx context.Context, teamID string) bool
}

// InMemory is a seedable Directory for local wiring and tests.
type InMemory struct {
	mu            sync.RWMutex
	activities    map[string]map[string]struct{} // activityID -> sub-activity names
	users         map[string]struct{}
	teams         map[string]struct{}
	allowUnknown  bool
}

// Option applies a configuration option to the InMemory directory.
type Option func(*InMemory)

// WithOpenRegistration makes every existence check succeed. Useful when the
// real directories are not wired in and validation should not block writes.
func WithOpenRegistration() Option {
	return func(d *InMemory) {
		d.allowUnknown = true
	}
}

// NewInMemory builds an empty in-memory directory.
func NewInMemory(opts ...Option) *InMemory {
	d := &InMemory{
		activities: make(map[string]map[string]struct{}),
		users:      make(map[string]struct{}),
		teams:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddActivity registers an activity and its sub-activity names.
func (d *InMemory) AddActivity(activityID string, subActivities ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs, ok := d.activities[activityID]
	if !ok {
		subs = make(map[string]struct{})
		d.activities[activityID] = subs
	}
	for _, s := range subActivities {
		subs[s] = struct{}{}
	}
}

// AddUser registers a user id.
func (d *InMemory) AddUser(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[userID] = struct{}{}
}

// AddTeam registers a team id.
func (d *InMemory) AddTeam(teamID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teams[teamID] = struct{}{}
}

func (d *InMemory) ActivityExists(ctx context.Context, activityID string) bool {
	if d.allowUnknown {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.activities[activityID]
	return ok
}

func (d *InMemory) SubActivityExists(ctx context.Context, activityID, subActivity string) bool {
	if d.allowUnknown {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	subs, ok := d.activities[activityID]
	if !ok {
		return false
	}
	_, ok = subs[subActivity]
	return ok
}

func (d *InMemory) UserExists(ctx context.Context, userID string) bool {
	if d.allowUnknown {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[userID]
	return ok
}

func (d *InMemory) TeamExists(ctx context.Context, teamID string) bool {
	if d.allowUnknown {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.teams[teamID]
	return ok
}
