// Package notify provides best-effort email notification over SMTP.
//
// This package is internal to chimestock. It wraps github.com/wneessen/go-mail
// with the semantics the watcher needs: a short-lived SMTP connection per
// send (STARTTLS, authenticated submission) and failures that are logged
// and reported as a boolean rather than propagated, so a mail outage never
// stops the poll loop.
//
// Users of the chimestock library should not need to interact with this
// package directly; the Store drives it through the Notifier interface.
package notify
