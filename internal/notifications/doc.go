// Package notifications delivers push notifications for analysis runs via
// ntfy. Without a configured topic every call is a no-op.
package notifications
