// Package alert decides when a status change deserves a notification and
// delivers it without holding up the caller.
//
// [Decide] applies the per-service rules: nothing is sent on the first
// observation or when the status is unchanged; any move into Down or
// Degraded is sent; a move from Down or Degraded back to Operational is
// sent as a recovery.
//
// [Dispatcher.Notify] hands a [Notification] to a [Messenger] on a
// background goroutine. A failed delivery is logged and passed to a
// [Reporter]; it is never retried and never reaches the caller.
package alert
