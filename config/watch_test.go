package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonwraymond/opscore/observe"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opscore.yaml")
	if err := os.WriteFile(path, []byte(minimal), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, observe.Nop().Logger(), func(c *Config) { reloaded <- c })
	}()
	// let the watcher register
	time.Sleep(100 * time.Millisecond)

	// invalid content is skipped
	if err := os.WriteFile(path, []byte("probes: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	next := minimal + `  - key: analytics
    target: https://analytics.example.com
`
	if err := os.WriteFile(path, []byte(next), 0o600); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(3 * time.Second)
	for {
		select {
		case c := <-reloaded:
			if len(c.Probes) == 2 {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch: %v", err)
				}
				return
			}
		case <-timeout:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatch_MissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "opscore.yaml"), observe.Nop().Logger(), func(*Config) {})
	if err == nil {
		t.Fatal("watching a missing directory succeeded")
	}
}
