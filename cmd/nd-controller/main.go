package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NetDecoy/internal/api"
	"NetDecoy/internal/config"
	"NetDecoy/internal/controller"
	"NetDecoy/internal/model"
	"NetDecoy/internal/notify"
	"NetDecoy/internal/sink"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file (optional; environment overrides apply).")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	static, err := cfg.Switch.Parse()
	if err != nil {
		log.Fatalf("Invalid switch configuration: %v", err)
	}
	log.Printf("Proxying coprocessor port %d to fake port %d, fake network %s, idle timeout %ds",
		static.CoproPort, static.FakePort, static.FakeNet, static.IdleTimeout)

	stats := model.NewStats()

	// --- Optional flow-event observers ---
	var notifiers []model.Notifier
	if cfg.Notifier.Enabled {
		pub, err := notify.NewPublisher(cfg.Notifier)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer pub.Close()
		notifiers = append(notifiers, pub)
	}
	if cfg.Sink.Enabled {
		ch, err := sink.NewClickHouseSink(cfg.Sink)
		if err != nil {
			log.Fatalf("Failed to set up ClickHouse sink: %v", err)
		}
		defer ch.Close()
		notifiers = append(notifiers, ch)
	}

	// --- Status API ---
	if cfg.API.Enabled {
		srv := api.NewServer(cfg.API, static, stats)
		srv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("Status API shutdown: %v", err)
			}
		}()
	}

	// --- OpenFlow controller ---
	ctrl := controller.New(static, stats, notifiers...)
	go func() {
		log.Printf("OpenFlow controller listening on %s", cfg.Switch.ListenAddr)
		ctrl.ListenAndServe(cfg.Switch.ListenAddr)
	}()

	// Wait for a shutdown signal.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
