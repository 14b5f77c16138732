// Package mqtt connects the hub to an MQTT broker.
//
// The broker is an optional side channel:
//   - Presence: every registry transition is published under
//     {prefix}/presence/{deviceId} (retained) and {prefix}/events/connection.
//   - Commands: messages on {prefix}/command/{deviceId} are relayed to the
//     device exactly as GET/POST /send would; the outcome is published on
//     {prefix}/ack/{deviceId}.
//   - Status: the hub's own online/offline state lives on
//     {prefix}/system/status, with a Last Will for crashes.
//
// The client reconnects with exponential backoff and restores its
// subscriptions after every reconnect.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.AllCommands(), 1, handler)
package mqtt
