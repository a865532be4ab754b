package model

import "time"

// EventType enumerates the closed set of notification types carried on the
// fanout channel. Anything outside this set is dropped at publish time.
type EventType string

const (
	EventScoreStatus       EventType = "score:status"
	EventScoreNew          EventType = "score:new"
	EventTeamAdded         EventType = "team:added"
	EventActivityChange    EventType = "activity:change"
	EventSubActivityChange EventType = "subactivity:change"
	EventFeedbackNew       EventType = "feedback:new"
	EventTimerEnded        EventType = "timer:ended"
)

// Valid reports whether the type belongs to the closed set.
func (t EventType) Valid() bool {
	switch t {
	case EventScoreStatus, EventScoreNew, EventTeamAdded,
		EventActivityChange, EventSubActivityChange,
		EventFeedbackNew, EventTimerEnded:
		return true
	}
	return false
}

// Notification is a typed event addressed to a single room. Ephemeral:
// delivery is at-most-once and nothing is persisted, so a disconnected
// client re-fetches current state through the query APIs instead of
// replaying events.
type Notification struct {
	Type    EventType      `json:"type"`
	Room    string         `json:"-"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Room name constructors. Rooms are addressable channels subscribers join.

// UserRoom addresses a single user's personal room.
func UserRoom(userID string) string { return "user:" + userID }

// TeamRoom addresses a team's shared room.
func TeamRoom(teamID string) string { return "team:" + teamID }

// ActivityRoom addresses an activity-scoped broadcast room.
func ActivityRoom(activityID string) string { return "activity:" + activityID }

// TimerEntry is a named, activity-scoped countdown. It is created running
// and flips Running=false on manual stop or natural expiry; completed
// entries are retained as history.
type TimerEntry struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	ActivityID string        `json:"activity_id"`
	Duration   time.Duration `json:"-"`
	StartedAt  time.Time     `json:"started_at"`
	EndTime    time.Time     `json:"end_time"`
	Running    bool          `json:"running"`
}
