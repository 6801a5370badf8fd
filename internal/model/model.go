package model

import "time"

type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleAdmin     Role = "admin"
)

type MeetingStatus string

const (
	StatusScheduled MeetingStatus = "scheduled"
	StatusCompleted MeetingStatus = "completed"
	StatusCancelled MeetingStatus = "cancelled"
)

type Response string

const (
	ResponsePending  Response = "pending"
	ResponseAccepted Response = "accepted"
	ResponseDeclined Response = "declined"
)

type User struct {
	ID           int64     `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type TimeSlot struct {
	ID          int64  `json:"slot_id"`
	StartTime   Clock  `json:"start_time"`
	EndTime     Clock  `json:"end_time"`
	DayOfWeek   string `json:"day_of_week"`
	IsRecurring bool   `json:"is_recurring"`
}

type Room struct {
	ID       int64  `json:"room_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	IsActive bool   `json:"is_active"`
}

type Meeting struct {
	ID          int64         `json:"meeting_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	RoomID      *int64        `json:"room_id"`
	SlotID      int64         `json:"slot_id"`
	Date        Date          `json:"meeting_date"`
	CreatedBy   int64         `json:"created_by"`
	Status      MeetingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

type Participant struct {
	MeetingID int64     `json:"meeting_id"`
	UserID    int64     `json:"user_id"`
	Response  Response  `json:"response"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Availability struct {
	UserID      int64 `json:"user_id"`
	SlotID      int64 `json:"slot_id"`
	IsAvailable bool  `json:"is_available"`
}

// Booking is a meeting resolved to the room and wall-clock interval it occupies.
type Booking struct {
	MeetingID int64         `json:"id"`
	Title     string        `json:"title"`
	RoomID    *int64        `json:"room_id,omitempty"`
	RoomName  *string       `json:"room"`
	SlotID    int64         `json:"slot_id"`
	Date      Date          `json:"date"`
	StartTime Clock         `json:"start_time"`
	EndTime   Clock         `json:"end_time"`
	Status    MeetingStatus `json:"-"`
}

type Conflict struct {
	Date     Date    `json:"meeting_date"`
	Meeting1 Booking `json:"meeting1"`
	Meeting2 Booking `json:"meeting2"`
}

type ScheduleEntry struct {
	MeetingID        int64         `json:"meeting_id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Date             Date          `json:"meeting_date"`
	Status           MeetingStatus `json:"status"`
	StartTime        Clock         `json:"start_time"`
	EndTime          Clock         `json:"end_time"`
	DayOfWeek        string        `json:"day_of_week"`
	RoomName         *string       `json:"room_name"`
	OrganizerName    string        `json:"organizer_name"`
	ParticipantCount int           `json:"participant_count"`
}

type UserSchedule struct {
	Schedule  []ScheduleEntry `json:"schedule"`
	Conflicts []Conflict      `json:"conflicts"`
}

type Person struct {
	ID    int64  `json:"user_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role,omitempty"`
}

type RoomRef struct {
	ID       int64  `json:"room_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type ParticipantDetail struct {
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Response     Response  `json:"response"`
	ResponseDate time.Time `json:"response_date"`
}

type MeetingDetails struct {
	Meeting
	Organizer    Person              `json:"organizer"`
	Room         *RoomRef            `json:"room"`
	Slot         *TimeSlot           `json:"time_slot"`
	Participants []ParticipantDetail `json:"participants"`
}

// MeetingStat is the per-meeting row analytics are computed from. DurationMinutes
// is nil when the meeting's slot times could not be resolved.
type MeetingStat struct {
	MeetingID       int64
	Status          MeetingStatus
	OrganizerID     int64
	OrganizerName   string
	DurationMinutes *int
}

type StatusCounts struct {
	Total     int `json:"total_meetings"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Scheduled int `json:"scheduled"`
}

type OrganizerStat struct {
	OrganizerID        int64    `json:"organizer_id"`
	Organizer          string   `json:"organizer"`
	MeetingsCreated    int      `json:"meetings_created"`
	AvgDurationMinutes *float64 `json:"avg_duration_minutes"`
}

type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

type Analytics struct {
	Period        Period          `json:"period"`
	Counts        StatusCounts    `json:"counts"`
	TopOrganizers []OrganizerStat `json:"top_organizers"`
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleAdmin:
		return true
	}
	return false
}

func (s MeetingStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (r Response) Valid() bool {
	switch r {
	case ResponsePending, ResponseAccepted, ResponseDeclined:
		return true
	}
	return false
}

type RefreshToken struct {
	ID         string
	UserID     int64
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}
