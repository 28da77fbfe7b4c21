package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"

	"fleet-insight/internal/sim"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file — using system environment variables")
	}

	var (
		agency      = flag.String("agency", "demo-transit", "transit agency identifier")
		routeTag    = flag.String("route", "all-routes", "route tag to simulate, or all-routes")
		numVehicles = flag.Int("vehicles", 25, "number of vehicles to simulate")
		interval    = flag.Duration("interval", 2*time.Second, "delay between batches")
		broker      = flag.String("broker", envOr("MQTT_BROKER", "tcp://localhost:1883"), "MQTT broker URL")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	)
	flag.Parse()

	routes := sim.DemoRoutes()
	if *routeTag != "" && *routeTag != "all-routes" {
		var filtered []sim.Route
		for _, r := range routes {
			if r.Tag == *routeTag {
				filtered = append(filtered, r)
			}
		}
		if len(filtered) == 0 {
			log.Fatalf("unknown route %q", *routeTag)
		}
		routes = filtered
	}

	rng := rand.New(rand.NewSource(*seed))
	vehicles := sim.SetupFleet(routes, *numVehicles, rng)

	opts := paho.NewClientOptions().
		AddBroker(*broker).
		SetClientID(fmt.Sprintf("fleet-insight-generator-%d", os.Getpid()))
	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	topic := fmt.Sprintf("fleet/%s/positions", *agency)
	log.Printf("publishing %d vehicles on %d routes to %s every %s",
		len(vehicles), len(routes), topic, *interval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	batches := 0
	for {
		select {
		case <-sigCh:
			log.Printf("stopped after %d batches", batches)
			return

		case <-ticker.C:
			now := time.Now().UTC()
			records := make([]sim.Record, len(vehicles))
			for i, v := range vehicles {
				records[i] = v.Snapshot(*agency, now)
			}

			payload, err := json.Marshal(records)
			if err != nil {
				log.Fatalf("marshal batch: %v", err)
			}

			token := client.Publish(topic, 1, false, payload)
			token.Wait()
			if err := token.Error(); err != nil {
				log.Printf("publish failed: %v", err)
				continue
			}

			batches++
			if batches%10 == 0 {
				log.Printf("published %d batches (%d events)", batches, batches*len(vehicles))
			}

			for _, v := range vehicles {
				v.Advance(*interval)
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
