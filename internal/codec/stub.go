package codec

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region stub-server
// StubServer is a deterministic ModelServer for local runs and tests. The
// planner emits one sentence per input triple in input order; the realizer
// joins each sentence's triples into plain text. Generate fails unless the
// requested model is the active one.
type StubServer struct {
	PlannerName  string
	RealizerName string

	mu       sync.Mutex
	active   string
	switches int
}

// NewStubServer creates a stub serving the two named models.
func NewStubServer(planner, realizer string) *StubServer {
	return &StubServer{PlannerName: planner, RealizerName: realizer}
}

// Active returns the model currently placed on the accelerator.
func (s *StubServer) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Switches counts Activate calls that changed the active model.
func (s *StubServer) Switches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.switches
}

func (s *StubServer) Generate(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	name, _ := RequestModel(ctx)
	if active := s.Active(); name != active {
		return nil, status.Errorf(codes.FailedPrecondition, "model %q is not active (active=%q)", name, active)
	}
	switch name {
	case s.PlannerName:
		return wrapperspb.String(stubPlan(in.GetValue())), nil
	case s.RealizerName:
		return wrapperspb.String(stubRealize(in.GetValue())), nil
	default:
		return nil, status.Errorf(codes.NotFound, "unknown model %q", name)
	}
}

func (s *StubServer) Activate(_ context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	name := in.GetValue()
	if name != s.PlannerName && name != s.RealizerName {
		return nil, status.Errorf(codes.NotFound, "unknown model %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != name {
		s.active = name
		s.switches++
	}
	return &emptypb.Empty{}, nil
}

func (s *StubServer) Offload(_ context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == in.GetValue() {
		s.active = ""
	}
	return &emptypb.Empty{}, nil
}

// #endregion stub-server

// #region stub-models
func stubPlan(input string) string {
	n := 0
	for _, tok := range strings.Fields(input) {
		if tok == "<S>" {
			n++
		}
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "S " + strconv.Itoa(i)
	}
	return strings.Join(parts, " ")
}

func stubRealize(template string) string {
	var sentences []string
	for _, sent := range strings.Split(template, "<sentence>") {
		var facts []string
		for _, t := range strings.Split(sent, "<S>") {
			t = strings.NewReplacer("<P>", "", "<O>", "").Replace(t)
			if t = strings.Join(strings.Fields(t), " "); t != "" {
				facts = append(facts, t)
			}
		}
		if len(facts) > 0 {
			sentences = append(sentences, strings.Join(facts, " and ")+".")
		}
	}
	return strings.Join(sentences, " ")
}

// #endregion stub-models
