// Package server exposes the health and data endpoints over HTTP.
//
//	GET|POST|OPTIONS /health   run a health cycle; 503 when overall is down
//	GET|POST|OPTIONS /data     cached GitHub data and cache administration
//	GET /livez                 process liveness
//	GET /metrics               Prometheus scrape, when enabled
package server
