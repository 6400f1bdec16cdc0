// Package state keeps per-user dialog steps for multi-message conversations.
// Each user is either idle or at exactly one named step carrying typed data.
package state
