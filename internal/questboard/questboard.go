// Package questboard defines the core domain types shared by the quest,
// feedback, grading and mission services.
// It has no external dependencies.
package questboard

import (
	"strings"
	"time"
)

// Collections in the document store.
const (
	CollUsers           = "users"
	CollQuests          = "quests"
	CollFeedbackHistory = "adminFeedback"
	CollAdminUsers      = "admin_users"
	CollAdminMessages   = "admin_messages"
)

// PlayerFeedbackCollection is the per-player feedback collection.
func PlayerFeedbackCollection(playerID string) string { return "playerFeedback/" + playerID }

// DayGradesCollection holds the grades given on date (see DateKey).
func DayGradesCollection(date string) string { return "daygrades/" + date }

// MissionsCollection holds the mission submissions made on date.
func MissionsCollection(date string) string { return "missions/" + date }

// DateKey formats t as the calendar day used to key grades and missions.
func DateKey(t time.Time) string { return t.Format(time.DateOnly) }

const (
	MinLevel = 1
	MaxLevel = 10
)

type Player struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Skin       string     `json:"skin,omitempty"`
	Points     int        `json:"points"`
	Level      int        `json:"level"`
	Experience int        `json:"experience"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type QuestStatus string

const (
	QuestActive     QuestStatus = "active"
	QuestPlayerDone QuestStatus = "player_done"
	QuestCompleted  QuestStatus = "completed"
)

// AllPlayers is the legacy "unassigned" quest target.
const AllPlayers = "all"

// IsAllPlayers reports whether an assignment means "all players".
func IsAllPlayers(assigned string) bool {
	a := strings.TrimSpace(assigned)
	return a == "" || strings.EqualFold(a, AllPlayers) || strings.EqualFold(a, "All Players")
}

type Reward struct {
	XP     int `json:"xp"`
	Points int `json:"points"`
}

type Verification struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

type JustificationStatus string

const (
	JustificationPending  JustificationStatus = "pending_review"
	JustificationReviewed JustificationStatus = "reviewed"
)

type Justification struct {
	Message    string              `json:"message"`
	PlayerName string              `json:"playerName"`
	Timestamp  time.Time           `json:"timestamp"`
	Status     JustificationStatus `json:"status"`
}

type Quest struct {
	ID             string         `json:"id"`
	Logo           string         `json:"logo"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	AssignedPlayer string         `json:"assignedPlayer"`
	Task           string         `json:"task"`
	EndTime        time.Time      `json:"endTime"`
	Verification   *Verification  `json:"verification,omitempty"`
	Justification  *Justification `json:"playerJustification,omitempty"`
	Reward         Reward         `json:"reward"`
	Status         QuestStatus    `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
	CompletedBy    string         `json:"completedBy,omitempty"`
}

// Expired is a derived view state; it never changes the stored status.
func (q Quest) Expired(now time.Time) bool {
	return q.Status != QuestCompleted && !q.EndTime.IsZero() && now.After(q.EndTime)
}

type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNegative FeedbackType = "negative"
	FeedbackNeutral  FeedbackType = "neutral"
)

func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackPositive, FeedbackNegative, FeedbackNeutral:
		return true
	}
	return false
}

type ReadStatus string

const (
	StatusUnread ReadStatus = "unread"
	StatusRead   ReadStatus = "read"
)

const (
	MinXPDelta = -5
	MaxXPDelta = 5
)

type Feedback struct {
	ID          string       `json:"id"`
	PlayerID    string       `json:"playerId"`
	PlayerName  string       `json:"playerName"`
	Type        FeedbackType `json:"type"`
	Title       string       `json:"title"`
	Message     string       `json:"message"`
	XPDelta     int          `json:"xpDelta"`
	SentBy      string       `json:"sentBy"`
	SentByName  string       `json:"sentByName"`
	CreatedAt   time.Time    `json:"createdAt"`
	Status      ReadStatus   `json:"status"`
	ReadAt      *time.Time   `json:"readAt,omitempty"`
	XPAppliedAt *time.Time   `json:"xpAppliedAt,omitempty"`
}

type DayGrade struct {
	PlayerID  string    `json:"playerId"`
	Grade     int       `json:"grade"`
	Timestamp time.Time `json:"timestamp"`
	GradedBy  string    `json:"gradedBy"`
}

const (
	MinGrade = 1
	MaxGrade = 5
)

// DefaultMissionName is used when a submission carries no mission name.
const DefaultMissionName = "Daily Mission"

type Submission struct {
	ID          string    `json:"id"`
	MissionName string    `json:"missionName"`
	Description string    `json:"description"`
	Evidence    string    `json:"evidence,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// MissionDay is one player's submissions for one calendar day.
type MissionDay struct {
	PlayerID    string       `json:"playerId"`
	PlayerName  string       `json:"playerName"`
	Status      string       `json:"status"`
	Submissions []Submission `json:"submissions"`
}

// Message is a player-to-admin inbox message.
type Message struct {
	ID         string     `json:"id"`
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Status     ReadStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}

// Admin is a document in admin_users.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

const RoleAdmin = "admin"

// Failure is one failed item of a batch command.
type Failure struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason"`
}
