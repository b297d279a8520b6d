package serialmux

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	id1, ch1 := mux.Subscribe()
	id2, ch2 := mux.Subscribe()
	if id1 == id2 {
		t.Fatalf("subscriber ids collide: %s", id1)
	}
	if ch1 == nil || ch2 == nil {
		t.Fatal("subscribe returned nil channel")
	}

	mux.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Error("channel still open after unsubscribe")
	}

	// Unsubscribing twice must not panic.
	mux.Unsubscribe(id1)
	mux.Unsubscribe(id2)
}

func TestSendCommandAppendsNewline(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	if err := mux.SendCommand("STREAM=1"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if got := string(port.GetWrittenData()); got != "STREAM=1\n" {
		t.Errorf("written data = %q, want %q", got, "STREAM=1\n")
	}

	port.Reset()
	if err := mux.SendCommand("STREAM=0\n"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if got := string(port.GetWrittenData()); got != "STREAM=0\n" {
		t.Errorf("written data = %q, want %q", got, "STREAM=0\n")
	}
}

func TestSendCommandWriteError(t *testing.T) {
	port := NewTestableSerialPort()
	port.WriteError = context.DeadlineExceeded
	mux := NewSerialMux(port)

	if err := mux.SendCommand("STREAM=1"); err == nil {
		t.Fatal("expected write error")
	}
}

func TestInitializeSendsStartCommands(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	if err := mux.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	written := string(port.GetWrittenData())
	for _, cmd := range []string{"C=", "RST", "FMT=CSV", "GAZE=ON", "BLINK=NAN", "STREAM=1"} {
		if !strings.Contains(written, cmd) {
			t.Errorf("initialize did not send %q; wrote %q", cmd, written)
		}
	}
}

func TestMonitorDeliversLines(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- mux.Monitor(ctx) }()

	_, ch := mux.Subscribe()
	received := make(chan string, 1)
	go func() {
		line, ok := <-ch
		if ok {
			received <- line
		}
	}()

	// Give the receiver time to block on the channel: the mux drops
	// lines for subscribers that are not listening.
	time.Sleep(20 * time.Millisecond)
	port.AddReadData([]byte("5,1.0,2.0\n"))

	select {
	case line := <-received:
		if line != "5,1.0,2.0" {
			t.Errorf("received %q, want %q", line, "5,1.0,2.0")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
	}

	cancel()
	select {
	case err := <-monitorDone:
		if err != context.Canceled {
			t.Errorf("Monitor returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not exit on cancel")
	}
}

func TestMonitorStopsOnClose(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	ctx := context.Background()
	monitorDone := make(chan error, 1)
	go func() { monitorDone <- mux.Monitor(ctx) }()

	_, ch := mux.Subscribe()

	time.Sleep(20 * time.Millisecond)
	if err := mux.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, ok := <-ch; ok {
		t.Error("subscriber channel still open after Close")
	}

	select {
	case <-monitorDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not exit after Close")
	}
}

func TestCloseClosesPort(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	if err := mux.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !port.Closed {
		t.Error("underlying port not closed")
	}
}
