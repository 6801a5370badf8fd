package request

import (
	"testing"
	"time"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
)

var today = model.NewDate(2025, time.March, 1)

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, fe := range apperr.FieldsOf(err) {
		out[fe.Field] = fe.Message
	}
	return out
}

func TestMeetingValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Meeting
		want map[string]string
	}{
		{"no participants", Meeting{Title: "Solo", SlotID: 1, MeetingDate: "2025-03-10"}, map[string]string{}},
		{"everything wrong", Meeting{Title: "ab", MeetingDate: "2020-01-01", ParticipantIDs: []int64{3, 3}}, map[string]string{
			"title":           "title must be at least 3 characters",
			"slot_id":         "slot_id is required",
			"meeting_date":    "Date cannot be in the past",
			"participant_ids": "participant_ids must not contain duplicates",
		}},
		{"negative participant", Meeting{Title: "Sync", SlotID: 1, MeetingDate: "2025-03-10", ParticipantIDs: []int64{-4}}, map[string]string{
			"participant_ids[0]": "participant_ids[0] must be a positive integer",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.req, today)
			got := fields(t, err)
			if len(got) != len(tt.want) {
				t.Fatalf("fields = %v, want %v", got, tt.want)
			}
			for f, msg := range tt.want {
				if got[f] != msg {
					t.Errorf("%s: got %q, want %q", f, got[f], msg)
				}
			}
		})
	}
}

func TestIntervalValidate(t *testing.T) {
	err := Validate(&Interval{Date: "2025-03-10", StartTime: "10:00", EndTime: "09:00"}, today)
	if got := fields(t, err); got["end_time"] != "end_time must be after start_time" {
		t.Errorf("fields = %v", got)
	}

	q := Interval{Date: "2025-03-10", StartTime: "09:00", EndTime: "10:30"}
	if err := Validate(&q, today); err != nil {
		t.Fatalf("valid interval: %v", err)
	}
	d, s, e := q.Values()
	if d.String() != "2025-03-10" || s != model.NewClock(9, 0) || e != model.NewClock(10, 30) {
		t.Errorf("values = %v %v %v", d, s, e)
	}
}

func TestStructIgnoresNonStructs(t *testing.T) {
	if err := Struct([]int{1}); err != nil {
		t.Errorf("slice: %v", err)
	}
	var m *Meeting
	if err := Struct(m); err != nil {
		t.Errorf("nil pointer: %v", err)
	}
}
