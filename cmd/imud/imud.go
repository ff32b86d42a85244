// Command imud reads IMU telemetry from a serial port, serves the decoded
// state over HTTP, and optionally archives samples to SQLite.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/imu.report/internal/api"
	"github.com/banshee-data/imu.report/internal/db"
	"github.com/banshee-data/imu.report/internal/imu"
	"github.com/banshee-data/imu.report/internal/serialport"
	"github.com/banshee-data/imu.report/internal/version"
)

var (
	devMode       = flag.Bool("dev", false, "Feed synthetic frames instead of opening a serial port")
	listen        = flag.String("listen", ":8080", "HTTP listen address")
	portPath      = flag.String("port", "/dev/ttyACM0", "Serial port device (ignored in dev mode)")
	baudRate      = flag.Int("baud", 921600, "Serial baud rate")
	dbFile        = flag.String("db", "imu_data.db", "SQLite database file (empty disables archiving)")
	printInterval = flag.Duration("print-interval", 500*time.Millisecond, "How often to log the latest sample (0 disables)")
	statsInterval = flag.Duration("stats-interval", 10*time.Second, "How often to log and archive decoder counters")
	readSleep     = flag.Duration("read-sleep", time.Millisecond, "Pause between decode passes")
)

// devFeeder stands in for real hardware in dev mode: it hands out in-memory
// ports and pushes synthetic euler frames onto whichever port is current.
type devFeeder struct {
	mu   sync.Mutex
	port *serialport.TestablePort
}

func (f *devFeeder) Open(path string, opts serialport.Options) (serialport.Port, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.port = serialport.NewTestablePort()
	return f.port, nil
}

func (f *devFeeder) feed(ctx context.Context) {
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t := time.Since(start).Seconds()
			frame := imu.EncodeFrame(imu.RecordEuler, [3]float32{
				float32(20 * math.Sin(t)),
				float32(10 * math.Cos(t/2)),
				float32(math.Mod(30*t, 360)),
			})
			f.mu.Lock()
			port := f.port
			f.mu.Unlock()
			if port != nil {
				port.AddReadData(frame)
			}
		}
	}
}

func main() {
	flag.Parse()
	log.Printf("imud %s", version.String())

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !*devMode && *portPath == "" {
		log.Fatal("Serial port is required")
	}

	opts := serialport.Options{BaudRate: *baudRate}

	var feeder *devFeeder
	var dec *imu.Decoder
	var err error
	if *devMode {
		feeder = &devFeeder{}
		dec, err = imu.OpenWithFactory(feeder, "dev:synthetic", opts)
	} else {
		dec, err = imu.Open(*portPath, opts)
	}
	if err != nil {
		log.Fatalf("failed to open serial port: %v", err)
	}
	defer dec.Close()
	log.Printf("reading from %s", dec.Port())

	var database *db.DB
	var session string
	if *dbFile != "" {
		database, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		session, err = database.StartSession(dec.Port(), *baudRate)
		if err != nil {
			log.Fatalf("failed to start session: %v", err)
		}
		log.Printf("recording session %s", session)
	}

	mon := imu.NewMonitor(dec, *readSleep)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *devMode {
		wg.Add(1)
		go func() {
			defer wg.Done()
			feeder.feed(ctx)
		}()
	}

	// run the monitor routine to own the decoder and publish samples,
	// reopening the port after I/O failures
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			err := mon.Run(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				log.Print("monitor routine terminated")
				return
			}
			log.Printf("serial port failed: %v", err)

			select {
			case <-ctx.Done():
				log.Print("monitor routine terminated")
				return
			case <-time.After(time.Second):
			}
			if err := dec.Reopen(); err != nil {
				log.Printf("failed to reopen %s: %v", dec.Port(), err)
			}
		}
	}()

	// log the latest decoded sample at a human-friendly cadence and archive
	// it when a database is configured
	if *printInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tick := time.NewTicker(*printInterval)
			defer tick.Stop()

			var lastSeen *imu.Sample
			for {
				select {
				case <-ctx.Done():
					return
				case <-tick.C:
					sample := mon.Latest()
					if sample == nil || sample == lastSeen {
						continue
					}
					lastSeen = sample
					log.Print(sample)

					if database != nil {
						if err := database.RecordSample(session, *sample); err != nil {
							log.Printf("failed to record sample: %v", err)
						}
					}
				}
			}
		}()
	}

	// periodic counter snapshots
	if *statsInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tick := time.NewTicker(*statsInterval)
			defer tick.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-tick.C:
					st := mon.Stats()
					log.Printf("decoder: %s", st)

					if database != nil {
						if err := database.RecordStats(session, st, time.Now()); err != nil {
							log.Printf("failed to record stats: %v", err)
						}
					}
				}
			}
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(mon, database).ServeMux()
		if database != nil {
			database.AttachAdminRoutes(mux)
		}

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: h,
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
