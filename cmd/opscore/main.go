// Opscore serves aggregated dependency health and a cached GitHub data
// proxy.
//
// Usage:
//
//	# Serve /health and /data
//	opscore serve --config opscore.yaml
//
//	# Run one health cycle and print the snapshot
//	opscore check --config opscore.yaml
//
//	# Show version information
//	opscore version
package main

func main() {
	Execute()
}
