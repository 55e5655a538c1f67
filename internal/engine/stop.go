package engine

import (
	"context"
	"os"
	"time"
)

// StopFile is a cross-platform stop request: Windows has no SIGTERM to send
// a detached daemon, so `worker stop` drops this file instead.
type StopFile string

func (s StopFile) Requested() bool {
	_, err := os.Stat(string(s))
	return err == nil
}

func (s StopFile) Request() error {
	return os.WriteFile(string(s), []byte("stop"), 0644)
}

func (s StopFile) Clear() {
	_ = os.Remove(string(s))
}

// Watch polls for the stop file and calls stop once it appears. It returns
// when ctx is done or after stop has been called.
func (s StopFile) Watch(ctx context.Context, every time.Duration, stop func()) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if s.Requested() {
				stop()
				return
			}
		}
	}
}
