package rpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/auth"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/request"
	"meeting-scheduler-api/internal/scheduling"
)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*scheduler)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", (*Server).login),
		unary("IsRoomAvailable", (*Server).isRoomAvailable),
		unary("AvailableRooms", (*Server).availableRooms),
		unary("AvailableTimeSlots", (*Server).availableTimeSlots),
		unary("FindConflicts", (*Server).findConflicts),
		unary("CreateMeeting", (*Server).createMeeting),
		unary("ScheduleMeeting", (*Server).scheduleMeeting),
		unary("RespondToMeeting", (*Server).respond),
		unary("GetUserSchedule", (*Server).userSchedule),
		unary("GetMeetingAnalytics", (*Server).analytics),
		unary("GetMeetingDetails", (*Server).meetingDetails),
		unary("SearchMeetings", (*Server).searchMeetings),
	},
	Metadata: "scheduler/v1/scheduler.proto",
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(ctx context.Context, req *loginRequest) (any, error) {
	u, err := s.accounts.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if apperr.Is(err, apperr.KindNotFound) || (err == nil && !auth.CheckPassword(u.PasswordHash, req.Password)) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	tok, err := auth.MakeToken(auth.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}, s.secret, s.ttl)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return map[string]any{"token": tok, "user": u}, nil
}

type roomIntervalRequest struct {
	RoomID int64 `json:"room_id" binding:"required,gt=0"`
	request.Interval
}

func (s *Server) isRoomAvailable(ctx context.Context, req *roomIntervalRequest) (any, error) {
	date, start, end := req.Values()
	ok, err := s.svc.IsRoomAvailable(ctx, req.RoomID, date, start, end)
	if err != nil {
		return nil, err
	}
	return map[string]any{"available": ok}, nil
}

func (s *Server) availableRooms(ctx context.Context, req *request.Interval) (any, error) {
	date, start, end := req.Values()
	rooms, err := s.svc.AvailableRooms(ctx, date, start, end)
	if err != nil {
		return nil, err
	}
	return map[string]any{"rooms": rooms}, nil
}

func (s *Server) availableTimeSlots(ctx context.Context, req *request.UserDay) (any, error) {
	slots, err := s.svc.AvailableTimeSlots(ctx, req.UserID, request.ParseDate(req.Date))
	if err != nil {
		return nil, err
	}
	return map[string]any{"slots": slots}, nil
}

type rangeRequest struct {
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
}

func (r *rangeRequest) dates() (model.Date, model.Date) {
	return request.ParseDate(r.StartDate), request.ParseDate(r.EndDate)
}

type userRangeRequest struct {
	UserID    int64  `json:"user_id" binding:"required,gt=0"`
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
}

func (r *userRangeRequest) dates() (model.Date, model.Date) {
	return request.ParseDate(r.StartDate), request.ParseDate(r.EndDate)
}

func (s *Server) findConflicts(ctx context.Context, req *userRangeRequest) (any, error) {
	if err := s.ownUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	from, to := req.dates()
	conflicts, err := s.svc.FindConflicts(ctx, req.UserID, from, to)
	if err != nil {
		return nil, err
	}
	return map[string]any{"conflicts": conflicts}, nil
}

func (s *Server) userSchedule(ctx context.Context, req *userRangeRequest) (any, error) {
	if err := s.ownUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	from, to := req.dates()
	return s.svc.UserScheduleWithConflicts(ctx, req.UserID, from, to)
}

func (s *Server) analytics(ctx context.Context, req *rangeRequest) (any, error) {
	p, _ := auth.FromContext(ctx)
	if !p.HasRole(model.RoleProfessor, model.RoleAdmin) {
		return nil, apperr.Forbidden("Insufficient permissions. Required roles: professor, admin")
	}
	from, to := req.dates()
	return s.svc.MeetingAnalytics(ctx, from, to)
}

func (s *Server) createMeeting(ctx context.Context, req *request.Meeting) (any, error) {
	return s.book(ctx, req, s.svc.CreateMeeting)
}

func (s *Server) scheduleMeeting(ctx context.Context, req *request.Meeting) (any, error) {
	return s.book(ctx, req, s.svc.ScheduleMeeting)
}

// book runs the same advisory room check as the REST façade before creating.
func (s *Server) book(ctx context.Context, req *request.Meeting, create func(context.Context, scheduling.NewMeeting) (int64, error)) (any, error) {
	p, _ := auth.FromContext(ctx)
	n := req.Build(p.UserID)
	if n.RoomID != nil {
		slot, err := s.svc.TimeSlot(ctx, n.SlotID)
		if err != nil {
			return nil, err
		}
		free, err := s.svc.IsRoomAvailable(ctx, *n.RoomID, n.Date, slot.StartTime, slot.EndTime)
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, apperr.Conflict("Room is not available at the requested time", nil)
		}
	}
	id, err := create(ctx, n)
	if err != nil {
		return nil, err
	}
	return map[string]any{"meeting_id": id}, nil
}

type respondRequest struct {
	MeetingID int64 `json:"meeting_id" binding:"required,gt=0"`
	request.Respond
}

// respond answers for the caller, or for user_id when the caller is an admin.
func (s *Server) respond(ctx context.Context, req *respondRequest) (any, error) {
	p, _ := auth.FromContext(ctx)
	userID := p.UserID
	if req.UserID != nil && *req.UserID != p.UserID {
		if !p.HasRole(model.RoleAdmin) {
			return nil, apperr.Forbidden("You can only respond for yourself")
		}
		userID = *req.UserID
	}
	if _, err := s.svc.MeetingDetails(ctx, req.MeetingID); err != nil {
		return nil, err
	}
	if err := s.svc.Respond(ctx, req.MeetingID, userID, model.Response(req.Response)); err != nil {
		return nil, err
	}
	return map[string]any{"meeting_id": req.MeetingID, "user_id": userID, "response": req.Response}, nil
}

type meetingIDRequest struct {
	MeetingID int64 `json:"meeting_id" binding:"required,gt=0"`
}

func (s *Server) meetingDetails(ctx context.Context, req *meetingIDRequest) (any, error) {
	return s.svc.MeetingDetails(ctx, req.MeetingID)
}

func (s *Server) searchMeetings(ctx context.Context, req *request.Search) (any, error) {
	found, err := s.svc.SearchMeetings(ctx, req.Filters())
	if err != nil {
		return nil, err
	}
	return map[string]any{"meetings": found, "count": len(found)}, nil
}

func (s *Server) ownUser(ctx context.Context, userID int64) error {
	p, ok := auth.FromContext(ctx)
	if !ok {
		return apperr.Unauthorized("User not authenticated")
	}
	if p.UserID != userID && !p.HasRole(model.RoleProfessor, model.RoleAdmin) {
		return apperr.Forbidden("You can only access your own data")
	}
	return nil
}
