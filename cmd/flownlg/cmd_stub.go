package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/flownlg/internal/codec"
)

func newStubServerCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "stub-server",
		Short: "Serve deterministic planner and realizer stubs for local runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", listen, err)
			}
			srv := grpc.NewServer()
			codec.RegisterModelServer(srv, codec.NewStubServer(a.cfg.PlannerModel, a.cfg.RealizerModel))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			go func() {
				<-ctx.Done()
				srv.GracefulStop()
			}()

			a.log.Info("stub model service listening", "addr", lis.Addr().String(),
				"planner", a.cfg.PlannerModel, "realizer", a.cfg.RealizerModel)
			return srv.Serve(lis)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "localhost:50051", "address to serve on")
	return cmd
}
