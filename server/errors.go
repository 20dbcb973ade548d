package server

import "errors"

var (
	// ErrNoMonitor is returned by New when Options.Monitor is nil.
	ErrNoMonitor = errors.New("server: monitor is required")

	// ErrNoProxy is returned by New when Options.Proxy is nil.
	ErrNoProxy = errors.New("server: proxy is required")
)
