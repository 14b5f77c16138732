package mqtt

import "strings"

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "wscontroller"

// Topics builds the hub's topic names under one prefix.
//
//	topics := mqtt.Topics{Prefix: "wscontroller"}
//	topics.Command("042") // "wscontroller/command/042"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimRight(t.Prefix, "/")
}

// SystemStatus is the hub's own retained online/offline topic.
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// Presence is the retained online/offline state of one device.
func (t Topics) Presence(deviceID string) string {
	return t.prefix() + "/presence/" + deviceID
}

// ConnectionEvents carries every registry transition, not retained.
func (t Topics) ConnectionEvents() string {
	return t.prefix() + "/events/connection"
}

// Command is where a message for deviceID is published.
func (t Topics) Command(deviceID string) string {
	return t.prefix() + "/command/" + deviceID
}

// AllCommands matches every command topic.
func (t Topics) AllCommands() string {
	return t.prefix() + "/command/+"
}

// CommandAck reports the outcome of a command for deviceID.
func (t Topics) CommandAck(deviceID string) string {
	return t.prefix() + "/ack/" + deviceID
}

// ParseCommand extracts the device id from a command topic.
func (t Topics) ParseCommand(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/command/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
