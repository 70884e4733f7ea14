// Package state persists per-user conversation sessions for Telegram bots.
// Stores are generic over the session type so each bot defines its own
// conversation shape; the package only knows about user ids and expiry.
package state
