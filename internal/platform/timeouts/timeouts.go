// Package timeouts defines shared timeout constants used by the story
// commands. Keeping them together makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// DatasetLoad caps the single startup load of the three input documents.
const DatasetLoad = 10 * time.Second

// SocketWrite caps one websocket frame write to a browser session.
const SocketWrite = 2 * time.Second
