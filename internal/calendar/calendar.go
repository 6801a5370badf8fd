// Package calendar renders a user's schedule as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"meeting-scheduler-api/internal/model"
)

const productID = "-//meeting-scheduler-api//schedule//EN"

// Encode writes one VEVENT per entry. Wall-clock slot times are placed on the
// meeting date in loc and emitted in UTC.
func Encode(w io.Writer, entries []model.ScheduleEntry, loc *time.Location, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, e := range entries {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, fmt.Sprintf("meeting-%d@meeting-scheduler-api", e.MeetingID))
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.On(e.Date, loc).UTC())
		ev.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.On(e.Date, loc).UTC())
		ev.Props.SetText(ical.PropSummary, e.Title)
		if e.Description != "" {
			ev.Props.SetText(ical.PropDescription, e.Description)
		}
		if e.RoomName != nil {
			ev.Props.SetText(ical.PropLocation, *e.RoomName)
		}
		ev.Props.SetText(ical.PropStatus, status(e.Status))
		cal.Children = append(cal.Children, ev.Component)
	}
	return ical.NewEncoder(w).Encode(cal)
}

func status(s model.MeetingStatus) string {
	if s == model.StatusCancelled {
		return "CANCELLED"
	}
	return "CONFIRMED"
}
