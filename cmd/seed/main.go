// Command seed loads development data: users, rooms, weekday time slots and
// two weeks of meetings. Running it again reuses what already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/auth"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/scheduling"
	"meeting-scheduler-api/internal/store"
)

var users = []struct {
	name, email string
	role        model.Role
}{
	{"Alice Johnson", "alice@university.edu", model.RoleStudent},
	{"Bob Smith", "bob@university.edu", model.RoleStudent},
	{"Charlie Brown", "charlie@university.edu", model.RoleStudent},
	{"Diana Prince", "diana@university.edu", model.RoleStudent},
	{"Evan Davis", "evan@university.edu", model.RoleStudent},
	{"Dr. Rajesh Kumar", "rajesh.kumar@university.edu", model.RoleProfessor},
	{"Dr. Priya Sharma", "priya.sharma@university.edu", model.RoleProfessor},
	{"Dr. Suresh Patel", "suresh.patel@university.edu", model.RoleProfessor},
	{"Dr. Anand Menon", "anand.menon@university.edu", model.RoleProfessor},
	{"Admin", "admin@university.edu", model.RoleAdmin},
}

var rooms = []struct {
	name     string
	capacity int
}{
	{"Conference Room A", 10},
	{"Conference Room B", 8},
	{"Meeting Room 101", 4},
	{"Meeting Room 102", 4},
	{"Board Room", 15},
}

var (
	weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	hours    = []int{9, 10, 11, 14, 15}
	topics   = []string{
		"Data Structures", "Web Development", "Machine Learning", "Database Design",
		"Competitive Programming", "Career Planning", "Course Selection", "Internship Preparation",
	}
)

func main() {
	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	password := env("SEED_PASSWORD", "password123")
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	st := store.New(pool, 5*time.Second)
	if err := st.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	userIDs, err := seedUsers(ctx, st, password)
	if err != nil {
		log.Fatalf("users: %v", err)
	}
	roomIDs, err := seedRooms(ctx, st)
	if err != nil {
		log.Fatalf("rooms: %v", err)
	}
	slots, err := seedSlots(ctx, st)
	if err != nil {
		log.Fatalf("slots: %v", err)
	}
	n, err := seedMeetings(ctx, scheduling.New(st), userIDs, roomIDs, slots)
	if err != nil {
		log.Fatalf("meetings: %v", err)
	}
	log.Printf("seeded %d users, %d rooms, %d slots, %d meetings", len(userIDs), len(roomIDs), len(slots), n)
}

func seedUsers(ctx context.Context, st *store.Store, password string) ([]int64, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		existing, err := st.UserByEmail(ctx, u.email)
		if err == nil {
			ids = append(ids, existing.ID)
			continue
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		nu := &model.User{Name: u.name, Email: u.email, Role: u.role, PasswordHash: hash}
		if err := st.CreateUser(ctx, nu); err != nil {
			return nil, err
		}
		ids = append(ids, nu.ID)
	}
	return ids, nil
}

func seedRooms(ctx context.Context, st *store.Store) ([]int64, error) {
	existing, err := st.ActiveRooms(ctx)
	if err != nil {
		return nil, err
	}
	byName := map[string]int64{}
	for _, r := range existing {
		byName[r.Name] = r.ID
	}
	ids := make([]int64, 0, len(rooms))
	for _, r := range rooms {
		if id, ok := byName[r.name]; ok {
			ids = append(ids, id)
			continue
		}
		nr := &model.Room{Name: r.name, Capacity: r.capacity, IsActive: true}
		if err := st.CreateRoom(ctx, nr); err != nil {
			return nil, err
		}
		ids = append(ids, nr.ID)
	}
	return ids, nil
}

// seedSlots returns the hourly weekday slots keyed by day name.
func seedSlots(ctx context.Context, st *store.Store) (map[string][]model.TimeSlot, error) {
	existing, err := st.TimeSlots(ctx)
	if err != nil {
		return nil, err
	}
	have := map[string]model.TimeSlot{}
	for _, s := range existing {
		have[s.DayOfWeek+s.StartTime.String()] = s
	}

	out := map[string][]model.TimeSlot{}
	for _, day := range weekdays {
		for _, h := range hours {
			start := model.NewClock(h, 0)
			s, ok := have[day+start.String()]
			if !ok {
				s = model.TimeSlot{StartTime: start, EndTime: model.NewClock(h+1, 0), DayOfWeek: day, IsRecurring: true}
				if err := st.CreateTimeSlot(ctx, &s); err != nil {
					return nil, err
				}
			}
			out[day] = append(out[day], s)
		}
	}
	return out, nil
}

// seedMeetings books one meeting per weekday over the next two weeks,
// skipping rooms that are already taken.
func seedMeetings(ctx context.Context, svc *scheduling.Service, userIDs, roomIDs []int64, slots map[string][]model.TimeSlot) (int, error) {
	today := model.DateOf(time.Now())
	students, staff := userIDs[:5], userIDs[5:9]
	created := 0
	for i := 1; i <= 14; i++ {
		d := today.AddDays(i)
		daySlots := slots[d.Weekday().String()]
		if len(daySlots) == 0 {
			continue
		}
		slot := daySlots[i%len(daySlots)]
		room := roomIDs[i%len(roomIDs)]

		free, err := svc.IsRoomAvailable(ctx, room, d, slot.StartTime, slot.EndTime)
		if err != nil {
			return created, err
		}
		if !free {
			continue
		}
		organizer := staff[i%len(staff)]
		_, err = svc.ScheduleMeeting(ctx, scheduling.NewMeeting{
			Title:          fmt.Sprintf("%s Consultation", topics[i%len(topics)]),
			Description:    "Meeting scheduled for discussion and guidance",
			RoomID:         &room,
			SlotID:         slot.ID,
			Date:           d,
			OrganizerID:    organizer,
			ParticipantIDs: []int64{students[i%len(students)], students[(i+2)%len(students)]},
		})
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
