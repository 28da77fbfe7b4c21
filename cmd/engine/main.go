package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"fleet-insight/internal/auth"
	"fleet-insight/internal/config"
	"fleet-insight/internal/domain"
	"fleet-insight/internal/engine"
	"fleet-insight/internal/geofence"
	"fleet-insight/internal/pipeline"
	"fleet-insight/internal/publisher"
	"fleet-insight/internal/state"
	"fleet-insight/internal/store"
	transporthttp "fleet-insight/internal/transport/http"
	transportmqtt "fleet-insight/internal/transport/mqtt"
	"fleet-insight/internal/transport/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file — using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewTimescaleStore(ctx, cfg)
	if err != nil {
		log.Fatalf("timescale: %v", err)
	}
	defer db.Close()

	redisStore, err := store.NewRedisStore(ctx, cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisStore.Close()

	var rabbitPub *publisher.InsightPublisher
	if cfg.RabbitURL != "" {
		conn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer conn.Close()

		rabbitPub, err = publisher.NewInsightPublisher(conn)
		if err != nil {
			log.Fatalf("insight publisher: %v", err)
		}
	}

	zones, err := geofence.NewIndex(cfg.GeofenceZones)
	if err != nil {
		log.Fatalf("geofence: %v", err)
	}

	vehicleStore := state.NewStore()
	dispatcher := pipeline.NewDispatcher(
		cfg.InsightChannelSize,
		cfg.InsightChannelSize,
		cfg.LiveChannelSize,
		cfg.SummaryChannelSize,
	)
	hub := ws.NewHub()

	eng := engine.New(vehicleStore, zones, engine.Options{
		StopSpeedKmh:      cfg.StopSpeedThresholdKmh,
		SpeedViolationKmh: cfg.SpeedViolationThresholdKmh,
		EtaMinMinutes:     cfg.EtaMinMinutes,
		EtaMaxMinutes:     cfg.EtaMaxMinutes,
		Workers:           cfg.EngineWorkers,
	}).WithAggregator(engine.Aggregator{
		CongestionThresholdKmh: cfg.CongestionAvgSpeedThreshold,
	}).WithEmitter(func(ins domain.Insight) {
		dispatcher.DispatchInsight(ins)
		hub.BroadcastInsight(ins)
	})

	onBatch := func(result engine.BatchResult) {
		dispatcher.DispatchSummary(result.Summary)
		hub.BroadcastSummary(result.Summary)

		seen := make(map[domain.Key]struct{}, len(result.Events))
		for _, evt := range result.Events {
			if _, dup := seen[evt.Key()]; dup {
				continue
			}
			seen[evt.Key()] = struct{}{}
			if st, ok := vehicleStore.Get(evt.Key()); ok {
				dispatcher.DispatchState(st)
			}
		}
	}

	var wg sync.WaitGroup
	runWorker := func(run func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx)
		}()
	}

	runWorker(pipeline.NewInsightWriter(dispatcher.DBChan, db, cfg.DBBatchSize, cfg.DBFlushIntervalMS).Run)
	runWorker(pipeline.NewSummaryWriter(dispatcher.SummaryChan, db).Run)
	runWorker(pipeline.NewLivePublisher(dispatcher.LiveChan, redisStore).Run)
	runWorker(pipeline.NewAlertPublisher(dispatcher.AlertChan, redisStore, rabbitPub).Run)
	runWorker(state.NewEvictor(vehicleStore, cfg.IdleEvictionTimeout).Run)

	mqttOpts := paho.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID)
	mqttClient := paho.NewClient(mqttOpts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer mqttClient.Disconnect(250)

	sub := transportmqtt.NewSubscriber(mqttClient, cfg.MQTTTopic, eng, onBatch)
	if err := sub.Start(); err != nil {
		log.Fatalf("mqtt subscribe: %v", err)
	}
	defer sub.Stop()

	authMw := transporthttp.NewAuthMiddleware(auth.NewAuthenticator(cfg, redisStore))
	server := transporthttp.NewServer(eng, onBatch, authMw, hub).
		WithHealthCheck("timescale", db).
		WithHealthCheck("redis", redisStore)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Handler(),
	}

	go func() {
		log.Printf("listening on :%s (mqtt topic %s)", cfg.HTTPPort, cfg.MQTTTopic)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	wg.Wait()
	log.Println("stopped")
}
