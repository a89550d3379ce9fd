package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rbright/lampwake/internal/recognition"
	"github.com/rbright/lampwake/internal/version"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Config controls the client connection.
type Config struct {
	Endpoint              string
	DialTimeout           time.Duration
	DebugResponseSinkJSON io.Writer
}

// StreamConfig controls one StreamingRecognize call.
type StreamConfig struct {
	LanguageCode    string
	Profile         string
	SampleRateHertz int
	SpeechPhrases   []string
	OpenTimeout     time.Duration
}

// Client is a connected recognizer client.
type Client struct {
	conn          *grpc.ClientConn
	debugSinkJSON io.Writer
}

// Dial connects to the recognizer and waits for the channel to become ready.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("recognizer endpoint is empty")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}

	conn, err := grpc.NewClient(
		endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial recognizer grpc %q: %w", endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := awaitReady(readyCtx, conn, endpoint); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for recognizer grpc readiness: %w", err)
	}

	return &Client{conn: conn, debugSinkJSON: cfg.DebugResponseSinkJSON}, nil
}

// ListProfiles returns the recognizer's installed profiles.
func (c *Client) ListProfiles(ctx context.Context) ([]recognition.Profile, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, listProfilesMethod, &emptypb.Empty{}, out); err != nil {
		return nil, fmt.Errorf("list recognizer profiles: %w", err)
	}
	return ParseProfiles(out), nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Stream wraps one active StreamingRecognize call.
type Stream struct {
	stream grpc.BidiStreamingClient[wrapperspb.BytesValue, structpb.Struct]
	cancel context.CancelFunc

	results  chan Hypothesis
	recvDone chan struct{}

	mu            sync.Mutex
	recvErr       error
	closedSend    bool
	debugSinkJSON io.Writer
}

// OpenStream starts a StreamingRecognize call and its receive loop.
func (c *Client) OpenStream(ctx context.Context, cfg StreamConfig) (*Stream, error) {
	if strings.TrimSpace(cfg.LanguageCode) == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.SampleRateHertz <= 0 {
		cfg.SampleRateHertz = 16000
	}

	md := metadata.Pairs(
		MetadataLanguage, cfg.LanguageCode,
		MetadataSampleRate, strconv.Itoa(cfg.SampleRateHertz),
	)
	if profile := strings.TrimSpace(cfg.Profile); profile != "" {
		md.Set(MetadataProfile, profile)
	}
	for _, phrase := range cfg.SpeechPhrases {
		if phrase = cleanSegment(phrase); phrase != "" {
			md.Append(MetadataPhrase, phrase)
		}
	}

	streamCtx, cancel := context.WithCancel(metadata.NewOutgoingContext(ctx, md))
	raw, err := openWithin(ctx, "stream open", cfg.OpenTimeout, func() (grpc.ClientStream, error) {
		return c.conn.NewStream(streamCtx, &ServiceDesc.Streams[0], streamingRecognizeMethod)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open streaming recognizer: %w", err)
	}

	s := &Stream{
		stream:        &grpc.GenericClientStream[wrapperspb.BytesValue, structpb.Struct]{ClientStream: raw},
		cancel:        cancel,
		results:       make(chan Hypothesis, 16),
		recvDone:      make(chan struct{}),
		debugSinkJSON: c.debugSinkJSON,
	}
	go s.recvLoop()
	return s, nil
}

// recvLoop continuously receives recognition responses until stream close/error.
func (s *Stream) recvLoop() {
	defer close(s.recvDone)
	defer close(s.results)

	for {
		resp, err := s.stream.Recv()
		if err == nil {
			s.recordResponse(resp)
			continue
		}
		if !errors.Is(err, io.EOF) {
			s.mu.Lock()
			s.recvErr = err
			s.mu.Unlock()
		}
		return
	}
}

// recordResponse forwards one non-empty hypothesis.
func (s *Stream) recordResponse(resp *structpb.Struct) {
	if sink := s.debugSinkJSON; sink != nil {
		b, err := protojson.Marshal(resp)
		if err == nil {
			_, _ = sink.Write(append(b, '\n'))
		}
	}

	h := ParseHypothesis(resp)
	if h.Transcript == "" {
		return
	}
	select {
	case s.results <- h:
	case <-s.stream.Context().Done():
	}
}

// Results yields hypotheses in arrival order and is closed when the stream ends.
func (s *Stream) Results() <-chan Hypothesis {
	return s.results
}

// SendAudio sends one chunk of PCM audio over the active stream.
func (s *Stream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	closed := s.closedSend
	recvErr := s.recvErr
	s.mu.Unlock()

	if closed {
		return errors.New("stream already closed for sending")
	}
	if recvErr != nil {
		return fmt.Errorf("stream receive loop failed: %w", recvErr)
	}

	return s.stream.Send(wrapperspb.Bytes(chunk))
}

// CloseSend half-closes the stream; pending hypotheses are still delivered.
func (s *Stream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closedSend {
		return nil
	}
	s.closedSend = true
	return s.stream.CloseSend()
}

// Wait blocks until the receive loop ends and returns its error.
func (s *Stream) Wait(ctx context.Context) error {
	select {
	case <-s.recvDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Err()
}

// Err returns the receive loop failure, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recvErr
}

// Cancel aborts the call.
func (s *Stream) Cancel() {
	s.mu.Lock()
	s.closedSend = true
	s.mu.Unlock()
	s.cancel()
}
