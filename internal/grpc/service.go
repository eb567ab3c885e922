package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name. Messages are
// google.protobuf.Struct values holding the same JSON the HTTP API uses.
const ServiceName = "kokoloko.v1.DraftService"

// draftServiceServer is the handler set registered under ServiceName
type draftServiceServer interface {
	StartDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOdds(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPicks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Resume(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ToggleMode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchEvents(*structpb.Struct, grpc.ServerStream) error
}

type unaryCall func(draftServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(draftServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*draftServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("StartDraft", draftServiceServer.StartDraft),
		unary("GetState", draftServiceServer.GetState),
		unary("GetSummary", draftServiceServer.GetSummary),
		unary("GetOdds", draftServiceServer.GetOdds),
		unary("ListPicks", draftServiceServer.ListPicks),
		unary("Decide", draftServiceServer.Decide),
		unary("Resume", draftServiceServer.Resume),
		unary("ToggleMode", draftServiceServer.ToggleMode),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(structpb.Struct)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(draftServiceServer).WatchEvents(in, stream)
			},
		},
	},
	Metadata: "kokoloko/v1/draft.proto",
}

// Client calls DraftService on a connection
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes a unary method with req encoded as a Struct and decodes the reply into resp
func (c *Client) Call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return fromStruct(out, resp)
}

// Watch opens the event stream for draftID ("" for all drafts)
func (c *Client) Watch(ctx context.Context, draftID string, opts ...grpc.CallOption) (*EventStream, error) {
	desc := &serviceDesc.Streams[0]
	stream, err := c.cc.NewStream(ctx, desc, "/"+ServiceName+"/WatchEvents", opts...)
	if err != nil {
		return nil, err
	}
	in, err := toStruct(map[string]string{"draftId": draftID})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	if _, err := stream.Header(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}

// EventStream yields events sent by WatchEvents
type EventStream struct {
	stream grpc.ClientStream
}

// Recv decodes the next event into v
func (s *EventStream) Recv(v any) error {
	out := new(structpb.Struct)
	if err := s.stream.RecvMsg(out); err != nil {
		return err
	}
	return fromStruct(out, v)
}

func toStruct(v any) (*structpb.Struct, error) {
	if v == nil {
		return &structpb.Struct{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
