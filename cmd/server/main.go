package main

import (
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/dsrhaslab/paio-stage/internal/admin"
	"github.com/dsrhaslab/paio-stage/internal/config"
	"github.com/dsrhaslab/paio-stage/internal/logging"
	paiogrpc "github.com/dsrhaslab/paio-stage/internal/networking/grpc"
	"github.com/dsrhaslab/paio-stage/internal/stage"
)

func main() {
	cfg := config.Get()

	closeLog, err := logging.Configure(logging.Options{Debug: !cfg.IsProduction()})
	if err != nil {
		slog.Error("server: failed to configure logging", "error", err)
		return
	}
	defer closeLog()

	slog.Info("server: starting data plane stage", "name", cfg.Stage.Name, "env", cfg.Stage.Env)

	var st *stage.Stage
	if cfg.Rules.HousekeepingFile != "" {
		st, err = stage.NewStageFromRuleFiles(cfg.Stage.Name, cfg.Stage.Env,
			cfg.Rules.HousekeepingFile, cfg.Rules.DifferentiationFile, cfg.Rules.EnforcementFile)
		if err != nil {
			slog.Error("server: failed to load stage from rule files", "error", err)
			return
		}
	} else {
		st = stage.NewStage(1, cfg.Stage.Name, cfg.Stage.Env)
	}

	if cfg.Admin.Enabled {
		go runAdmin(st, cfg)
	}

	if cfg.Connection.GRPCAddress != "" {
		go runGRPC(st, cfg.Connection.GRPCAddress)
	}

	select {}
}

func runAdmin(st *stage.Stage, cfg *config.Config) {
	period := time.Duration(cfg.Admin.StatsStreamPeriod) * time.Millisecond
	server := admin.NewServer(st, cfg.Admin.ListenAddress, period)
	if err := server.ListenAndServe(); err != nil {
		slog.Error("server: admin surface stopped", "error", err)
	}
}

func runGRPC(st *stage.Stage, listenAddr string) {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		slog.Error("server: failed to listen for gRPC", "address", listenAddr, "error", err)
		return
	}

	grpcServer := grpc.NewServer()
	paiogrpc.RegisterControlPlaneServer(grpcServer, paiogrpc.NewServer(st))

	slog.Info("server: gRPC control plane listening", "address", listenAddr)
	if err := grpcServer.Serve(lis); err != nil {
		slog.Error("server: gRPC server stopped", "error", err)
	}
}
