// Package monitor runs health cycles: probe every service, remember the
// snapshot, and notify on per-service transitions.
//
// A cycle is driven from outside, by an inbound /health request or by the
// optional cron [Scheduler]. The [Slot] holding the previous snapshot is
// swapped under a lock so concurrent cycles never compare against a
// half-written or skipped state.
package monitor
