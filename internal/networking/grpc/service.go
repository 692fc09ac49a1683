// Package grpc exposes part of the control-plane surface as a gRPC
// service — an alternative transport for deployments that prefer a typed
// RPC surface over the raw socket protocol (spec.md §2's domain-stack
// expansion). It serves channel and enforcement-object creation, object
// configuration, statistics collection and stage_ready; rule removal,
// standalone differentiation/enforcement rules and
// execute_housekeeping_rules are served only by the southbound socket
// handler. Request/response payloads are
// carried as google.protobuf.Struct rather than generated message types,
// since no .proto definition ships with this module; fields are named the
// same as the socket wire bodies they mirror.
package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dsrhaslab/paio-stage/internal/differentiation"
	"github.com/dsrhaslab/paio-stage/internal/enforcement"
	pstatus "github.com/dsrhaslab/paio-stage/internal/status"

	"github.com/dsrhaslab/paio-stage/internal/stage"
)

// Server implements the control-plane RPCs against a Stage's Core.
type Server struct {
	st *stage.Stage
}

// NewServer constructs a Server bound to st.
func NewServer(st *stage.Stage) *Server { return &Server{st: st} }

func field(req *structpb.Struct, name string) float64 {
	if req == nil {
		return 0
	}
	if v, ok := req.Fields[name]; ok {
		return v.GetNumberValue()
	}
	return 0
}

func fieldList(req *structpb.Struct, name string) []int64 {
	if req == nil {
		return nil
	}
	v, ok := req.Fields[name]
	if !ok {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]int64, 0, len(list.Values))
	for _, item := range list.Values {
		out = append(out, int64(item.GetNumberValue()))
	}
	return out
}

func statusStruct(st pstatus.Status) *structpb.Struct {
	out, _ := structpb.NewStruct(map[string]interface{}{"status": st.String()})
	return out
}

func toRPCError(st pstatus.Status) error {
	if st.IsError() {
		return status.Error(codes.Internal, "paio: error")
	}
	if st.IsNotFound() {
		return status.Error(codes.NotFound, "paio: not found")
	}
	if st.IsNotSupported() {
		return status.Error(codes.Unimplemented, "paio: not supported")
	}
	return nil
}

// CreateChannel creates a Channel with the id and selector values carried
// by req ("channel_id", "workflow_id", "operation_type", "operation_context",
// "channel_selector_mask"). A request that omits the mask activates every
// selector, matching the default a ChannelDifferentiationBuilder starts with.
func (s *Server) CreateChannel(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := int64(field(req, "channel_id"))
	mask := differentiation.SelectChannelAll
	if req != nil {
		if v, ok := req.Fields["channel_selector_mask"]; ok {
			mask = differentiation.ChannelSelectorMask(int(v.GetNumberValue()))
		}
	}
	tuple := differentiation.ChannelDifferentiationTuple{
		WorkflowID:       int64(field(req, "workflow_id")),
		OperationType:    int(field(req, "operation_type")),
		OperationContext: int(field(req, "operation_context")),
	}
	st := s.st.Core().CreateChannel(id, mask, tuple)
	return statusStruct(st), toRPCError(st)
}

// CreateEnforcementObject creates an EnforcementObject under the channel
// named by req ("channel_id", "object_id", "variant", "operation_type",
// "operation_context", "configurations").
func (s *Server) CreateEnforcementObject(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	channelID := int64(field(req, "channel_id"))
	objectID := int64(field(req, "object_id"))
	variant := enforcement.Variant(int32(field(req, "variant")))
	tuple := differentiation.ObjectDifferentiationTuple{
		OperationType:    int(field(req, "operation_type")),
		OperationContext: int(field(req, "operation_context")),
	}
	st := s.st.Core().CreateEnforcementObject(channelID, objectID, variant, tuple, fieldList(req, "configurations"))
	return statusStruct(st), toRPCError(st)
}

// ConfigureEnforcementObject dispatches a configure operation to the
// object named by req ("channel_id", "operation_type", "operation_context",
// "op", "values").
func (s *Server) ConfigureEnforcementObject(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	channelID := int64(field(req, "channel_id"))
	tuple := differentiation.ObjectDifferentiationTuple{
		OperationType:    int(field(req, "operation_type")),
		OperationContext: int(field(req, "operation_context")),
	}
	st := s.st.Core().ConfigureEnforcementObject(channelID, tuple, int(field(req, "op")), fieldList(req, "values"))
	return statusStruct(st), toRPCError(st)
}

// CollectStatistics gathers statistics for the object named by req
// ("channel_id", "object_id").
func (s *Server) CollectStatistics(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	channelID := int64(field(req, "channel_id"))
	objectID := int64(field(req, "object_id"))
	raw, st := s.st.Core().CollectObjectStatistics(channelID, objectID)
	if st.IsError() || st.IsNotFound() {
		return statusStruct(st), toRPCError(st)
	}

	entries := make([]interface{}, 0, len(raw.Entries))
	for _, e := range raw.Entries {
		entries = append(entries, map[string]interface{}{
			"normalized_empty_bucket": float64(e.NormalizedEmptyBucket),
			"tokens_left":             e.TokensLeft,
			"timestamp_micros":        float64(e.TimestampMicros),
		})
	}
	out, err := structpb.NewStruct(map[string]interface{}{"status": st.String(), "entries": entries})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("paio: encoding statistics: %v", err))
	}
	return out, nil
}

// MarkReady flips the stage's ready flag.
func (s *Server) MarkReady(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	s.st.MarkReady()
	return statusStruct(pstatus.Enforced()), nil
}

func unaryHandler(method func(*Server, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := new(structpb.Struct)
		if err := dec(req); err != nil {
			return nil, err
		}
		server := srv.(*Server)
		if interceptor == nil {
			return method(server, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(server, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, req, info, handler)
	}
}

// ServiceDesc is the hand-rolled grpc.ServiceDesc for the control-plane
// service — equivalent to what protoc-gen-go-grpc would emit from a
// paio_stage.proto this module does not carry.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "paio.stage.v1.ControlPlane",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateChannel", Handler: unaryHandler((*Server).CreateChannel)},
		{MethodName: "CreateEnforcementObject", Handler: unaryHandler((*Server).CreateEnforcementObject)},
		{MethodName: "ConfigureEnforcementObject", Handler: unaryHandler((*Server).ConfigureEnforcementObject)},
		{MethodName: "CollectStatistics", Handler: unaryHandler((*Server).CollectStatistics)},
		{MethodName: "MarkReady", Handler: unaryHandler((*Server).MarkReady)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "paio_stage.proto",
}

// RegisterControlPlaneServer registers srv against s.
func RegisterControlPlaneServer(s *grpc.Server, srv *Server) {
	s.RegisterService(&ServiceDesc, srv)
}
