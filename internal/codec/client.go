package codec

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region constants
const (
	ServiceName = "flownlg.v1.ModelService"

	methodGenerate = "/" + ServiceName + "/Generate"
	methodActivate = "/" + ServiceName + "/Activate"
	methodOffload  = "/" + ServiceName + "/Offload"

	mdModel     = "x-flownlg-model"
	mdMaxLength = "x-flownlg-max-length"
)

// #endregion constants

// #region client-struct
// CodecClient wraps the gRPC connection to the model service that
// hosts the planner and realizer.
type CodecClient struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewCodecClient connects to the model service.
func NewCodecClient(addr string) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{conn: conn, cc: conn}, nil
}

// NewCodecClientWithConn creates a CodecClient over an existing connection.
// Used for testing without a real server.
func NewCodecClientWithConn(cc grpc.ClientConnInterface) *CodecClient {
	return &CodecClient{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client owns one.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region generate
// Generate runs input through the named model. maxLength <= 0 leaves the
// server default in place.
func (c *CodecClient) Generate(ctx context.Context, model, input string, maxLength int) (string, error) {
	md := metadata.Pairs(mdModel, model)
	if maxLength > 0 {
		md.Append(mdMaxLength, strconv.Itoa(maxLength))
	}
	ctx = metadata.NewOutgoingContext(ctx, md)

	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodGenerate, wrapperspb.String(input), out); err != nil {
		return "", fmt.Errorf("generate rpc %s: %w", model, err)
	}
	return out.GetValue(), nil
}

// #endregion generate

// #region placement
// Activate asks the service to move the named model onto the accelerator.
func (c *CodecClient) Activate(ctx context.Context, model string) error {
	if err := c.cc.Invoke(ctx, methodActivate, wrapperspb.String(model), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("activate rpc %s: %w", model, err)
	}
	return nil
}

// Offload asks the service to move the named model off the accelerator.
func (c *CodecClient) Offload(ctx context.Context, model string) error {
	if err := c.cc.Invoke(ctx, methodOffload, wrapperspb.String(model), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("offload rpc %s: %w", model, err)
	}
	return nil
}

// #endregion placement

// #region model-handle
// Model binds a model name and generation length to the client.
type Model struct {
	client    *CodecClient
	name      string
	maxLength int
}

// Model returns a handle that generates with the named model.
func (c *CodecClient) Model(name string, maxLength int) *Model {
	return &Model{client: c, name: name, maxLength: maxLength}
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// Generate runs input through the bound model.
func (m *Model) Generate(ctx context.Context, input string) (string, error) {
	return m.client.Generate(ctx, m.name, input, m.maxLength)
}

// #endregion model-handle
