package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Yanis750/pymovements/internal/api"
	"github.com/Yanis750/pymovements/internal/config"
	"github.com/Yanis750/pymovements/internal/db"
	"github.com/Yanis750/pymovements/internal/serialmux"
	"github.com/Yanis750/pymovements/internal/version"
)

var (
	devMode        = flag.Bool("dev", false, "Run in dev mode (mock tracker fed from fixtures.txt)")
	listen         = flag.String("listen", ":8080", "Listen address")
	dbFile         = flag.String("db", "gaze_data.db", "Path to sqlite database")
	serialPort     = flag.String("serial", "/dev/ttyUSB0", "Serial port of the eye tracker")
	configPath     = flag.String("config", "", "Path to detection tuning JSON (built-in defaults when empty)")
	disableTracker = flag.Bool("disable-tracker", false, "Run without tracker hardware")
	recordName     = flag.String("record", "", "Name for the live recording (default live_<timestamp>)")
	showVersion    = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	// subcommands (migrate etc.) run and exit before the server starts
	if flag.NArg() > 0 {
		if err := runCommand(flag.Args()); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	var m serialmux.SerialMuxInterface
	switch {
	case *disableTracker:
		m = serialmux.NewDisabledSerialMux()
	case *devMode:
		data, err := os.ReadFile("fixtures.txt")
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		m = serialmux.NewMockSerialMux(data)
	default:
		var err error
		m, err = serialmux.NewRealSerialMux(*serialPort, serialmux.PortOptions{})
		if err != nil {
			log.Fatalf("failed to open tracker port: %v", err)
		}
		if err := m.Initialize(); err != nil {
			log.Fatalf("failed to initialize tracker: %v", err)
		}
	}
	defer m.Close()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Create a wait group for the HTTP server, serial monitor, and event handler routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to the serial port messages and pass them to the ingestor,
	// which stores parsed samples into the live recording
	wg.Add(1)
	go func() {
		defer wg.Done()

		name := *recordName
		if name == "" {
			name = fmt.Sprintf("live_%s", time.Now().Format("20060102_150405"))
		}
		rec, err := database.CreateRecording(name, tuning.GetSamplingRateHz())
		if err != nil {
			log.Printf("failed to create live recording, ingest disabled: %v", err)
			<-ctx.Done()
			return
		}
		log.Printf("ingesting samples into recording %s (%s)", rec.ID, name)
		ingestor := serialmux.NewIngestor(database, rec.ID)

		id, c := m.Subscribe()
		defer m.Unsubscribe(id)
		for {
			select {
			case payload := <-c:
				if err := ingestor.HandleEvent(payload); err != nil {
					log.Printf("error handling event: %v", err)
				}
			case <-ctx.Done():
				log.Printf("subscribe routine terminated")
				return
			}
		}
	}()

	// background detection worker: picks up recordings that have samples but
	// no events for the configured detector yet
	worker := db.NewEventWorker(database, tuning.DetectOptions(), tuning.GetDetectorLabel())
	worker.Interval = tuning.GetWorkerInterval()
	worker.Start()
	defer worker.Stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		database.AttachAdminRoutes(mux)
		m.AttachAdminRoutes(mux)

		// mount the API handlers and the tracker command endpoint
		apiMux := api.NewServer(database, tuning).ServeMux()
		apiMux.HandleFunc("POST /api/command", commandHandler(m))
		mux.Handle("/", apiMux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
