// Package notify implements the outbound messaging side of the service:
// the throttled community-invite sender, the per-broadcaster recurring
// broadcast scheduler, and the bookkeeping around delivery attempts.
package notify
