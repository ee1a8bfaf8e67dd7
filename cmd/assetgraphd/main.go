// Package main is the entrypoint for the asset property graph demo
// daemon: it wires a Container, instantiates a small sample base/derived
// asset pair, and serves the read-only debug introspection API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noslopforever/assetgraph/internal/bus"
	"github.com/noslopforever/assetgraph/internal/config"
	"github.com/noslopforever/assetgraph/internal/container"
	"github.com/noslopforever/assetgraph/internal/debugapi"
	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/model"
	"github.com/noslopforever/assetgraph/internal/propertygraph"
)

// zapLogger adapts *zap.Logger to the engine's minimal graph.Logger
// interface.
type zapLogger struct{ z *zap.Logger }

func (l zapLogger) Warnw(msg string, keysAndValues ...any) {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, _ := keysAndValues[i].(string)
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	l.z.Warn(msg, fields...)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	engineLogger := zapLogger{z: logger}

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	c := container.New()
	c.PropagateChangesFromBase = cfg.Container.PropagateChangesFromBase

	var publisher *bus.EventPublisher
	if cfg.NATS.Enabled {
		publisher, err = bus.NewEventPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Warn("nats publisher disabled", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
			logger.Info("connected to nats", zap.String("url", cfg.NATS.URL))
		}
	}

	baseID, derivedID := seedSampleAssets(c, engineLogger, publisher)
	logger.Info("seeded sample assets",
		zap.String("base", baseID.String()),
		zap.String("derived", derivedID.String()))

	srv := debugapi.NewServer(c, engineLogger)
	httpServer := &http.Server{
		Addr:         cfg.Debug.Address(),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting debug API", zap.String("addr", cfg.Debug.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("debug api server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("debug api shutdown error", zap.Error(err))
	}
	logger.Info("stopped")
	_ = fmt.Sprintf // keep fmt import if later diagnostics are added here
}

// seedSampleAssets builds a tiny "prop" asset (a color member and an
// identifiable list of tag strings) as a base, and a derived graph
// instantiated from it, registering both in c.
func seedSampleAssets(c *container.Container, logger graph.Logger, publisher *bus.EventPublisher) (model.ItemId, model.ItemId) {
	baseRoot := graph.NewObject("Prop", graph.NopHost)
	colorMember := baseRoot.GetOrCreateMember("color", "string")
	colorMember.Value = "red"

	tags := graph.NewCollection(true, graph.NopHost)
	baseRoot.GetOrCreateMember("tags", "[]Tag").Target = tags

	baseGraph := propertygraph.New(baseRoot, logger, nil)
	_, _ = tags.Add(baseGraph, model.NewIntIndex(0), "outdoor", nil, model.OriginLocal)
	_, _ = tags.Add(baseGraph, model.NewIntIndex(1), "wooden", nil, model.OriginLocal)

	baseID := model.NewItemId()
	c.Register(baseID, baseGraph)

	derivedGraph := propertygraph.InstantiateFromBase(baseGraph, logger, nil)
	derivedGraph.SetPropagateChangesFromBase(c.PropagateChangesFromBase)
	derivedID := model.NewItemId()
	if publisher != nil {
		bus.Attach(derivedGraph, derivedID, publisher)
	}
	c.Register(derivedID, derivedGraph)

	return baseID, derivedID
}
