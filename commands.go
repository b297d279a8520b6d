package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/Yanis750/pymovements/internal/db"
	"github.com/Yanis750/pymovements/internal/httputil"
	"github.com/Yanis750/pymovements/internal/serialmux"
)

// Allow list of tracker commands that may be sent over the HTTP command
// endpoint. Anything not listed here is rejected before it reaches the port.
var allowedCommands = []string{
	"RST", // Reset stream settings to defaults

	// Device information
	"?ID", // Query device serial number
	"?FW", // Query firmware version
	"?HZ", // Query native sampling rate
	"?ST", // Query streaming state

	// Streaming control
	"STREAM=1", // Start streaming samples
	"STREAM=0", // Stop streaming samples

	// Output format
	"FMT=CSV", // Comma separated sample lines
	"FMT=RAW", // Raw binary frames (debugging only)

	// Gaze and blink reporting
	"GAZE=ON",    // Enable gaze position reporting
	"GAZE=OFF",   // Disable gaze position reporting
	"BLINK=NAN",  // Report blink samples as nan coordinates
	"BLINK=DROP", // Drop blink samples from the stream

	// Timestamp mode
	"TS=REL", // Timestamps relative to stream start
	"TS=ABS", // Absolute timestamps from the device clock

	// Calibration
	"CAL",  // Start the on-device calibration routine
	"CAL?", // Query calibration status
}

// Commands taking a free-form value after '='; matched on the prefix.
var allowedSetCommands = []string{
	"C=",    // Set device clock (UNIX milliseconds)
	"RATE=", // Set sampling rate in Hz
	"LPF=",  // Set low-pass filter cutoff
}

// IsAllowedCommand reports whether a command may be forwarded to the tracker.
func IsAllowedCommand(command string) bool {
	command = strings.TrimSpace(command)
	for _, c := range allowedCommands {
		if command == c {
			return true
		}
	}
	for _, prefix := range allowedSetCommands {
		if strings.HasPrefix(command, prefix) && len(command) > len(prefix) {
			return true
		}
	}
	return false
}

type commandRequest struct {
	Command string `json:"command"`
}

// commandHandler forwards allow-listed commands to the tracker.
func commandHandler(m serialmux.SerialMuxInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commandRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if !IsAllowedCommand(req.Command) {
			httputil.BadRequest(w, fmt.Sprintf("command %q is not allowed", req.Command))
			return
		}
		if err := m.SendCommand(req.Command); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to send command: %v", err))
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"status": "sent", "command": req.Command})
	}
}

// runCommand dispatches the migrate subcommands; everything else lives in
// the cmd/ tree.
func runCommand(args []string) error {
	switch args[0] {
	case "migrate":
		return runMigrate(args[1:])
	default:
		return fmt.Errorf("unknown command %q (supported: migrate)", args[0])
	}
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	force := fs.Int("force", -1, "Force the schema version without running migrations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	direction := "up"
	if fs.NArg() > 0 {
		direction = fs.Arg(0)
	}

	switch {
	case *force >= 0:
		if err := database.MigrateForce(*force); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
		log.Printf("forced schema version to %d", *force)
	case direction == "up":
		if err := database.MigrateUp(); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		log.Print("migrations applied")
	case direction == "down":
		if err := database.MigrateDown(); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		log.Print("migrations rolled back")
	case direction == "version":
		version, dirty, err := database.MigrateVersion()
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		log.Printf("schema version %d (dirty=%v)", version, dirty)
	default:
		return fmt.Errorf("unknown migrate direction %q", direction)
	}
	return nil
}
