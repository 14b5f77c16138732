// Package api provides the HTTP control plane and the WebSocket entry point
// of the relay hub.
//
// Control-plane callers relay messages with /send and inspect connected
// devices with /status/{deviceId} and /devices. Any request that asks for
// a WebSocket upgrade, on any path, is handed to the device hub before
// routing.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
