package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fxconnect/internal/chart"
	"fxconnect/internal/connector"
	"fxconnect/internal/events"
	"fxconnect/internal/indicator"
	"fxconnect/internal/interfaces"
	"fxconnect/internal/logger"
	"fxconnect/internal/protocol"
	"fxconnect/internal/store"
	"fxconnect/internal/trace"
	"fxconnect/internal/types"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()
	cfg, err := store.LoadConfig("config.yaml")
	must(err)

	must(logger.InitWithConfig(logger.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format}))
	must(trace.Init())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() { _ = trace.Shutdown(context.Background()) }()

	tf, err := types.ParseTimeframe(cfg.Chart.Timeframe)
	must(err)

	bus := events.NewBus()
	adapter := protocol.NewAdapter()

	cmdConn := connector.NewTransport(cfg.Broker.Host, cfg.Broker.MainPort, cfg.Broker.InsecureSkipVerify, bus)
	streamConn := connector.NewTransport(cfg.Broker.Host, cfg.Broker.StreamPort, cfg.Broker.InsecureSkipVerify, bus)
	stream := connector.NewStream(streamConn, adapter, bus)
	api := connector.NewExecutor(cmdConn, stream, adapter, bus,
		time.Duration(cfg.Timeouts.RequestSeconds)*time.Second)

	must(api.Connect(ctx))
	defer func() { _ = api.Close() }()

	creds := interfaces.Credentials{
		UserID:   os.Getenv("BROKER_USER_ID"),
		Password: os.Getenv("BROKER_PASSWORD"),
		AppName:  cfg.Broker.AppName,
	}
	login, err := api.Login(ctx, creds)
	must(err)
	logger.Info(ctx, "logged in", "stream_session", login.StreamSessionID != "")

	must(api.SubscribeKeepAlive())

	agg, err := chart.NewAggregator(ctx, api, bus, cfg.Chart.Symbol, tf, cfg.Chart.Capacity)
	must(err)

	pool := indicator.NewPool[indicator.SMAPoint]()
	sma := indicator.NewSeries(pool, indicator.SMA(cfg.Indicators.SMAWindow))
	defer func() { _ = sma.Close() }()

	bbPool := indicator.NewPool[indicator.BollingerPoint]()
	bands := indicator.NewSeries(bbPool, indicator.Bollinger(cfg.Indicators.BBWindow, cfg.Indicators.BBStdDev))
	defer func() { _ = bands.Close() }()

	// full recompute on every completed bucket
	must(bus.Subscribe(events.TopicCandleOpened, func(symbol string, _ types.Candle) {
		if symbol != agg.Symbol() {
			return
		}
		window := agg.Snapshot()
		if err := sma.Update(window); err != nil {
			logger.ErrorWithErr(ctx, "sma update failed", err)
		}
		if err := bands.Update(window); err != nil {
			logger.ErrorWithErr(ctx, "bollinger update failed", err)
		}
		if v, err := sma.Last(); err == nil {
			logger.Info(ctx, "indicators recomputed",
				"symbol", symbol, "candles", len(window), "sma", v.Value)
		}
	}))

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	keepAlive := time.NewTicker(time.Duration(cfg.Timeouts.KeepAliveSeconds) * time.Second)
	defer keepAlive.Stop()

	logger.Info(ctx, "connector started",
		"symbol", cfg.Chart.Symbol, "timeframe", tf.String(), "capacity", cfg.Chart.Capacity)

	for {
		select {
		case <-keepAlive.C:
			if err := api.Ping(ctx); err != nil {
				logger.ErrorWithErr(ctx, "command ping failed", err)
			}
			if err := api.PingStream(); err != nil {
				logger.ErrorWithErr(ctx, "stream ping failed", err)
			}
		case <-sigc:
			logger.Info(ctx, "shutting down")
			_ = api.Logout(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}
