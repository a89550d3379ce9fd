// Package asr speaks the streaming recognizer gRPC service.
//
// The service is described with protobuf well-known types so neither side
// needs generated stubs:
//
//	service lampwake.recognizer.v1.Recognizer {
//	  rpc ListProfiles(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc StreamingRecognize(stream google.protobuf.BytesValue) returns (stream google.protobuf.Struct);
//	}
//
// Stream options travel as request metadata.
package asr

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "lampwake.recognizer.v1.Recognizer"

const (
	listProfilesMethod       = "/" + ServiceName + "/ListProfiles"
	streamingRecognizeMethod = "/" + ServiceName + "/StreamingRecognize"
)

// Request metadata keys understood by StreamingRecognize.
const (
	MetadataLanguage   = "x-lampwake-language"
	MetadataProfile    = "x-lampwake-profile"
	MetadataSampleRate = "x-lampwake-sample-rate-hz"
	MetadataPhrase     = "x-lampwake-phrase"
)

// RecognizerServer is the server API for the recognizer service.
type RecognizerServer interface {
	ListProfiles(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StreamingRecognize(grpc.BidiStreamingServer[wrapperspb.BytesValue, structpb.Struct]) error
}

// ServiceDesc describes the recognizer service for grpc registration and client streams.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecognizerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListProfiles",
			Handler:    listProfilesHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamingRecognize",
			Handler:       streamingRecognizeHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "lampwake/recognizer/v1/recognizer.proto",
}

// RegisterRecognizerServer registers srv on s.
func RegisterRecognizerServer(s grpc.ServiceRegistrar, srv RecognizerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func listProfilesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecognizerServer).ListProfiles(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: listProfilesMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecognizerServer).ListProfiles(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func streamingRecognizeHandler(srv any, stream grpc.ServerStream) error {
	return srv.(RecognizerServer).StreamingRecognize(&grpc.GenericServerStream[wrapperspb.BytesValue, structpb.Struct]{ServerStream: stream})
}
