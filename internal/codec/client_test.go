package codec

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region mock
type invocation struct {
	method string
	in     string
	md     metadata.MD
}

type mockConn struct {
	grpc.ClientConnInterface

	reply string
	err   error
	calls []invocation
}

func (m *mockConn) Invoke(ctx context.Context, method string, args, reply interface{}, _ ...grpc.CallOption) error {
	md, _ := metadata.FromOutgoingContext(ctx)
	m.calls = append(m.calls, invocation{
		method: method,
		in:     args.(*wrapperspb.StringValue).GetValue(),
		md:     md,
	})
	if m.err != nil {
		return m.err
	}
	if out, ok := reply.(*wrapperspb.StringValue); ok {
		proto.Merge(out, wrapperspb.String(m.reply))
	}
	return nil
}

// #endregion mock

// #region constructor-tests
func TestNewCodecClient(t *testing.T) {
	client, err := NewCodecClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

func TestNewCodecClientWithConn(t *testing.T) {
	c := NewCodecClientWithConn(&mockConn{})
	if c == nil || c.cc == nil {
		t.Fatal("expected client with connection")
	}
	if err := c.Close(); err != nil {
		t.Errorf("close without owned conn: %v", err)
	}
}

// #endregion constructor-tests

// #region generate-tests
func TestGenerate_Success(t *testing.T) {
	mock := &mockConn{reply: "S 0 S 1"}
	c := NewCodecClientWithConn(mock)

	out, err := c.Generate(context.Background(), "planner", "<S> A <P> p <O> B", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "S 0 S 1" {
		t.Errorf("expected plan 'S 0 S 1', got %q", out)
	}
	call := mock.calls[0]
	if call.method != methodGenerate {
		t.Errorf("expected method %s, got %s", methodGenerate, call.method)
	}
	if got := call.md.Get(mdModel); len(got) != 1 || got[0] != "planner" {
		t.Errorf("expected model metadata, got %v", got)
	}
	if got := call.md.Get(mdMaxLength); len(got) != 0 {
		t.Errorf("expected no max length metadata, got %v", got)
	}
}

func TestGenerate_MaxLength(t *testing.T) {
	mock := &mockConn{reply: "text"}
	m := NewCodecClientWithConn(mock).Model("realizer", 256)

	if _, err := m.Generate(context.Background(), "<sentence> x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mock.calls[0].md.Get(mdMaxLength); len(got) != 1 || got[0] != "256" {
		t.Errorf("expected max length 256, got %v", got)
	}
	if m.Name() != "realizer" {
		t.Errorf("expected name realizer, got %q", m.Name())
	}
}

func TestGenerate_Error(t *testing.T) {
	rpcErr := status.Error(codes.Unavailable, "down")
	c := NewCodecClientWithConn(&mockConn{err: rpcErr})

	_, err := c.Generate(context.Background(), "planner", "x", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, rpcErr) {
		t.Errorf("expected wrapped rpc error, got: %v", err)
	}
	if status.Code(err) != codes.Unavailable {
		t.Errorf("expected status code to survive wrapping, got %v", status.Code(err))
	}
}

// #endregion generate-tests

// #region placement-tests
func TestActivateOffload(t *testing.T) {
	mock := &mockConn{}
	c := NewCodecClientWithConn(mock)

	if err := c.Activate(context.Background(), "planner"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := c.Offload(context.Background(), "realizer"); err != nil {
		t.Fatalf("offload: %v", err)
	}
	if mock.calls[0].method != methodActivate || mock.calls[0].in != "planner" {
		t.Errorf("unexpected activate call %+v", mock.calls[0])
	}
	if mock.calls[1].method != methodOffload || mock.calls[1].in != "realizer" {
		t.Errorf("unexpected offload call %+v", mock.calls[1])
	}
}

func TestActivate_Error(t *testing.T) {
	mock := &mockConn{err: errors.New("boom")}
	c := NewCodecClientWithConn(mock)
	if err := c.Activate(context.Background(), "planner"); !errors.Is(err, mock.err) {
		t.Errorf("expected wrapped error, got %v", err)
	}
	if err := c.Offload(context.Background(), "planner"); !errors.Is(err, mock.err) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

// #endregion placement-tests

// #region bufconn-tests
func dialStub(t *testing.T, stub *StubServer) *CodecClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterModelServer(srv, stub)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewCodecClientWithConn(conn)
}

func TestStubServer_RoundTrip(t *testing.T) {
	stub := NewStubServer("planner", "realizer")
	c := dialStub(t, stub)
	ctx := context.Background()

	if err := c.Activate(ctx, "planner"); err != nil {
		t.Fatalf("activate planner: %v", err)
	}
	plan, err := c.Generate(ctx, "planner", "<S> A <P> likes <O> B <S> B <P> livesIn <O> C", 0)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan != "S 0 S 1" {
		t.Errorf("expected 'S 0 S 1', got %q", plan)
	}

	if err := c.Offload(ctx, "planner"); err != nil {
		t.Fatalf("offload planner: %v", err)
	}
	if err := c.Activate(ctx, "realizer"); err != nil {
		t.Fatalf("activate realizer: %v", err)
	}
	text, err := c.Generate(ctx, "realizer", "<sentence> <S> A <P> likes <O> B <sentence> <S> B <P> livesIn <O> C", 256)
	if err != nil {
		t.Fatalf("realize: %v", err)
	}
	if text != "A likes B. B livesIn C." {
		t.Errorf("unexpected realization %q", text)
	}
	if stub.Switches() != 2 {
		t.Errorf("expected 2 switches, got %d", stub.Switches())
	}
}

func TestStubServer_RejectsInactiveModel(t *testing.T) {
	c := dialStub(t, NewStubServer("planner", "realizer"))

	_, err := c.Generate(context.Background(), "planner", "<S> a <P> b <O> c", 0)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestStubServer_UnknownModel(t *testing.T) {
	c := dialStub(t, NewStubServer("planner", "realizer"))
	if err := c.Activate(context.Background(), "other"); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

// #endregion bufconn-tests

// #region stub-model-tests
func TestStubPlan(t *testing.T) {
	if got := stubPlan(""); got != "" {
		t.Errorf("expected empty plan, got %q", got)
	}
	if got := stubPlan("<S> a <P> b <O> c <S> d <P> e <O> f <S> g <P> h <O> i"); got != "S 0 S 1 S 2" {
		t.Errorf("unexpected plan %q", got)
	}
}

func TestStubRealize(t *testing.T) {
	got := stubRealize("<sentence> <S> A <P> likes <O> B <S> A <P> owns <O> C <sentence>")
	if got != "A likes B and A owns C." {
		t.Errorf("unexpected text %q", got)
	}
}

// #endregion stub-model-tests
