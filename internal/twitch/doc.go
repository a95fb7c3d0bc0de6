// Package twitch adapts the upstream Helix API to the domain interfaces:
// stream and channel lookups, chat delivery, content classification
// labels, EventSub subscription provisioning, and OAuth token refresh.
package twitch
