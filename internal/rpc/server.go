// Package rpc exposes the scheduling core as the gRPC service
// scheduler.v1.SchedulerService. Requests and responses are
// google.protobuf.Struct messages whose fields mirror the REST JSON bodies.
package rpc

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/request"
	"meeting-scheduler-api/internal/scheduling"
)

const ServiceName = "scheduler.v1.SchedulerService"

// Accounts is the user lookup Login needs.
type Accounts interface {
	UserByEmail(ctx context.Context, email string) (*model.User, error)
}

type Server struct {
	svc      *scheduling.Service
	accounts Accounts
	secret   string
	ttl      time.Duration
}

func NewServer(svc *scheduling.Service, accounts Accounts, secret string, ttl time.Duration) *Server {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Server{svc: svc, accounts: accounts, secret: secret, ttl: ttl}
}

// scheduler is the handler type of the service descriptor.
type scheduler interface {
	schedulerService()
}

func (*Server) schedulerService() {}

func Register(s grpc.ServiceRegistrar, srv *Server) {
	s.RegisterService(&serviceDesc, srv)
}

func method(name string) string {
	return "/" + ServiceName + "/" + name
}

// OpenMethods skip authentication.
func OpenMethods() map[string]bool {
	return map[string]bool{
		method("Login"):                true,
		"/grpc.health.v1.Health/Check": true,
		"/grpc.health.v1.Health/Watch": true,
	}
}

// LimitedMethods are rate limited per peer.
func LimitedMethods() map[string]bool {
	return map[string]bool{method("Login"): true}
}

// unary adapts a typed call to a Struct-in, Struct-out method. The request
// Struct is decoded into Req through its JSON form.
func unary[Req any](name string, call func(s *Server, ctx context.Context, req *Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handle := func(ctx context.Context, req any) (any, error) {
				var r Req
				if err := decodeStruct(req.(*structpb.Struct), &r); err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				s := srv.(*Server)
				if err := request.Validate(&r, s.svc.Today()); err != nil {
					return nil, toStatus(name, err)
				}
				out, err := call(s, ctx, &r)
				if err != nil {
					return nil, toStatus(name, err)
				}
				return encodeStruct(out)
			}
			if interceptor == nil {
				return handle(ctx, in)
			}
			return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: method(name)}, handle)
		},
	}
}

func decodeStruct(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

// toStatus carries field errors in the message since Struct has no error detail.
func toStatus(name string, err error) error {
	code := apperr.GRPCCode(err)
	if code == codes.Internal || code == codes.Unavailable {
		log.Printf("rpc %s: %v", name, err)
	}
	msg := apperr.Public(err)
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = f.Field + ": " + f.Message
		}
		msg += ": " + strings.Join(parts, "; ")
	}
	return status.Error(code, msg)
}
