// Copyright 2024-2026 Aiku AI

// Package relay holds the chat-platform independent core of the link relay.
//
// A [Pipeline] consumes [IncomingMessage] values produced by a transport
// adapter. Plain messages that contain an X/Twitter link are reposted with
// the link normalized and an attribution line. The original is then deleted.
// Command messages are routed to the [DeletionAuthorizer] or answered with
// static help texts.
//
// The core talks to the outside world only through the [Transport], [Stats]
// and [Scheduler] interfaces. Ownership of reposts is kept by a
// [ProvenanceTracker].
package relay
