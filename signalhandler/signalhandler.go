package signalhandler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"hotelimages/logging"
)

// SetupHandler returns a context that is cancelled on SIGINT or SIGTERM so
// in-flight images can finish while no new work starts. A second signal
// exits immediately. The returned stop function releases the handler.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go waitForSignals(sigChan, done, cancel, func() { os.Exit(1) })

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
		})
		cancel()
	}
}

// waitForSignals cancels the run on the first signal and calls exit on the
// second. It returns once done is closed.
func waitForSignals(sigChan <-chan os.Signal, done <-chan struct{}, cancel context.CancelFunc, exit func()) {
	select {
	case sig := <-sigChan:
		fmt.Fprintf(os.Stderr, "\nReceived %v, stopping after in-flight images (signal again to force)\n", sig)
		logging.LogWarning("Received %v, cancelling run", sig)
		cancel()
	case <-done:
		return
	}

	select {
	case <-sigChan:
		exit()
	case <-done:
	}
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	// Encoders run in C threads of their own; leave headroom for them
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
