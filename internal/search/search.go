// Package search turns meeting search filters into a list of typed predicates.
// Each predicate renders its own parameterized SQL fragment and can also be
// evaluated in memory; predicates always combine with AND.
package search

import (
	"fmt"
	"strings"

	"meeting-scheduler-api/internal/model"
)

// Filters are the optional search criteria. Zero values mean "not set".
type Filters struct {
	TitleKeyword  string               `json:"title_keyword"`
	From          *model.Date          `json:"start_date"`
	To            *model.Date          `json:"end_date"`
	ParticipantID *int64               `json:"participant_id"`
	RoomID        *int64               `json:"room_id"`
	Status        *model.MeetingStatus `json:"status"`
	OrganizerID   *int64               `json:"organizer_id"`
}

// Predicate is one search condition over a meeting aliased as "m".
type Predicate interface {
	// SQL renders the condition; bind appends an argument and returns its placeholder.
	SQL(bind func(any) string) string
	Match(m *model.MeetingDetails) bool
}

type TitleContains string

func (p TitleContains) SQL(bind func(any) string) string {
	return `m.title ILIKE ` + bind("%"+escapeLike(string(p))+"%")
}

func (p TitleContains) Match(m *model.MeetingDetails) bool {
	return strings.Contains(strings.ToLower(m.Title), strings.ToLower(string(p)))
}

// DateBetween is inclusive on both ends; a nil bound is open.
type DateBetween struct {
	From, To *model.Date
}

func (p DateBetween) SQL(bind func(any) string) string {
	var parts []string
	if p.From != nil {
		parts = append(parts, `m.meeting_date >= `+bind(p.From.Time))
	}
	if p.To != nil {
		parts = append(parts, `m.meeting_date <= `+bind(p.To.Time))
	}
	return strings.Join(parts, " AND ")
}

func (p DateBetween) Match(m *model.MeetingDetails) bool {
	if p.From != nil && m.Date.Before(p.From.Time) {
		return false
	}
	if p.To != nil && m.Date.After(p.To.Time) {
		return false
	}
	return true
}

type HasParticipant int64

func (p HasParticipant) SQL(bind func(any) string) string {
	return `EXISTS (SELECT 1 FROM meeting_participants sp
		WHERE sp.meeting_id = m.meeting_id AND sp.user_id = ` + bind(int64(p)) + `)`
}

func (p HasParticipant) Match(m *model.MeetingDetails) bool {
	for _, pt := range m.Participants {
		if pt.UserID == int64(p) {
			return true
		}
	}
	return false
}

type InRoom int64

func (p InRoom) SQL(bind func(any) string) string {
	return `m.room_id = ` + bind(int64(p))
}

func (p InRoom) Match(m *model.MeetingDetails) bool {
	return m.RoomID != nil && *m.RoomID == int64(p)
}

type WithStatus model.MeetingStatus

func (p WithStatus) SQL(bind func(any) string) string {
	return `m.status = ` + bind(string(p))
}

func (p WithStatus) Match(m *model.MeetingDetails) bool {
	return m.Status == model.MeetingStatus(p)
}

type OrganizedBy int64

func (p OrganizedBy) SQL(bind func(any) string) string {
	return `m.created_by = ` + bind(int64(p))
}

func (p OrganizedBy) Match(m *model.MeetingDetails) bool {
	return m.CreatedBy == int64(p)
}

// Predicates lists the conditions for every filter that is set, in a fixed order.
func (f Filters) Predicates() []Predicate {
	var out []Predicate
	if kw := strings.TrimSpace(f.TitleKeyword); kw != "" {
		out = append(out, TitleContains(kw))
	}
	if f.From != nil || f.To != nil {
		out = append(out, DateBetween{From: f.From, To: f.To})
	}
	if f.ParticipantID != nil {
		out = append(out, HasParticipant(*f.ParticipantID))
	}
	if f.RoomID != nil {
		out = append(out, InRoom(*f.RoomID))
	}
	if f.Status != nil {
		out = append(out, WithStatus(*f.Status))
	}
	if f.OrganizerID != nil {
		out = append(out, OrganizedBy(*f.OrganizerID))
	}
	return out
}

// Where assembles predicates into one WHERE clause. Placeholders start after
// the given number of arguments already bound by the caller.
func Where(preds []Predicate, offset int) (string, []any) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", offset+len(args))
	}
	var conds []string
	for _, p := range preds {
		if sql := p.SQL(bind); sql != "" {
			conds = append(conds, "("+sql+")")
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// MatchAll reports whether m satisfies every predicate.
func MatchAll(preds []Predicate, m *model.MeetingDetails) bool {
	for _, p := range preds {
		if !p.Match(m) {
			return false
		}
	}
	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
