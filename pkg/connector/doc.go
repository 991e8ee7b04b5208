// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package connector attaches the link relay to a Mattermost server.
//
// # Core Types
//
// [MattermostClient] logs in with a bot access token, keeps a WebSocket
// connection open for posted events and converts every post into a
// [relay.IncomingMessage]. Each message is handed to a [MessageHandler] on its
// own goroutine, bounded by the configured worker count.
//
// The client also implements [relay.Transport] over the REST API. HTTP status
// codes are mapped onto the relay's sentinel errors: 401 and 403 become
// [relay.ErrPermission], 404 becomes [relay.ErrNotFound] and everything else
// [relay.ErrDelivery].
//
// # Echo Prevention
//
// Posts are dropped before conversion when they were written by the bot
// itself, are system messages, carry the from_bot prop, or come from a
// username matching the configured bot prefix. Without these checks the relay
// would process its own reposts.
package connector
