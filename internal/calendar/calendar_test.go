package calendar

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"meeting-scheduler-api/internal/model"
)

func TestEncode(t *testing.T) {
	room := "Room A"
	entries := []model.ScheduleEntry{
		{
			MeetingID: 7,
			Title:     "Thesis review",
			Date:      model.NewDate(2025, time.March, 10),
			Status:    model.StatusScheduled,
			StartTime: model.NewClock(9, 0),
			EndTime:   model.NewClock(10, 0),
			RoomName:  &room,
		},
		{
			MeetingID:   8,
			Title:       "Office hours",
			Description: "bring drafts",
			Date:        model.NewDate(2025, time.March, 11),
			Status:      model.StatusCompleted,
			StartTime:   model.NewClock(14, 30),
			EndTime:     model.NewClock(15, 0),
		},
	}
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, entries, berlin, time.Now()); err != nil {
		t.Fatalf("encode: %v", err)
	}

	cal, err := ical.NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if s, _ := first.Props.Text(ical.PropSummary); s != "Thesis review" {
		t.Errorf("summary = %q", s)
	}
	if l, _ := first.Props.Text(ical.PropLocation); l != "Room A" {
		t.Errorf("location = %q", l)
	}
	start, err := first.DateTimeStart(time.UTC)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	// 09:00 in Berlin on 10 March is 08:00 UTC.
	if want := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %s, want %s", start, want)
	}
	if uid, _ := first.Props.Text(ical.PropUID); uid != "meeting-7@meeting-scheduler-api" {
		t.Errorf("uid = %q", uid)
	}

	second := events[1]
	if d, _ := second.Props.Text(ical.PropDescription); d != "bring drafts" {
		t.Errorf("description = %q", d)
	}
	if second.Props.Get(ical.PropLocation) != nil {
		t.Error("roomless meeting should have no location")
	}
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, nil, time.UTC, time.Now()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("BEGIN:VCALENDAR")) {
		t.Errorf("missing calendar wrapper: %s", buf.String())
	}
}
