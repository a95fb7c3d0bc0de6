// Package domain holds the model types and collaborator interfaces shared by
// the event pipeline. It has no dependencies on adapters; every backend
// (Postgres, Redis, Helix, Discord, the overlay hub) implements these
// interfaces and is wired together in cmd/server.
package domain
