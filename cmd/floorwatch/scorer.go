package main

import (
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xela07ax/floorwatch/internal/connectors"
	"github.com/xela07ax/floorwatch/internal/engine"
	"github.com/xela07ax/floorwatch/internal/health"
	"github.com/xela07ax/floorwatch/internal/infra"
)

// newScorer собирает модель RUL по конфигу. Удалённые модели оборачиваются
// в лимитер, ретраи и Circuit Breaker.
func newScorer(cfg infra.ScorerConfig, metrics *engine.Metrics, logger *zap.Logger) (health.Scorer, func(), error) {
	noop := func() {}

	switch cfg.Kind {
	case "none":
		logger.Warn("rul scorer disabled: machine stream will report rul=null")
		return nil, noop, nil

	case "linear":
		model, err := connectors.LoadLinearModel(cfg.ModelPath, health.FeatureNames)
		if err != nil {
			return nil, noop, fmt.Errorf("rul model: %w", err)
		}
		return model, noop, nil

	case "http":
		if cfg.URL == "" {
			return nil, noop, fmt.Errorf("scorer.kind=http requires scorer.url")
		}
		remote := connectors.NewHTTPScorer(cfg.URL, cfg.Timeout)
		return engine.NewReliableScorer(remote, cfg.Reliability, metrics, logger), noop, nil

	case "grpc":
		if cfg.Addr == "" {
			return nil, noop, fmt.Errorf("scorer.kind=grpc requires scorer.addr")
		}
		conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, noop, fmt.Errorf("rul model connection: %w", err)
		}
		remote := connectors.NewGRPCScorer(conn, cfg.Method, cfg.Timeout)
		return engine.NewReliableScorer(remote, cfg.Reliability, metrics, logger),
			func() { _ = conn.Close() }, nil
	}
	return nil, noop, fmt.Errorf("unknown scorer.kind %q", cfg.Kind)
}
