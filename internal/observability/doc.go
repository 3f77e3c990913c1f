// Package observability records what happens in a procmod workspace as an
// append-only JSON Lines event log and derives pipeline metrics and alerts
// from it on demand.
package observability
