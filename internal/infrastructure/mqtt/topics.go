package mqtt

import "strings"

// TopicPrefix is the root of every gateway topic.
const TopicPrefix = "sensorgw"

// Topics builds gateway topic names.
//
//	topics := mqtt.Topics{}
//	topics.Ingest("th-0042")     // sensorgw/ingest/th-0042
//	topics.Processed("th-0042")  // sensorgw/processed/th-0042
type Topics struct{}

// Ingest is where a device publishes raw readings.
func (Topics) Ingest(device string) string {
	return TopicPrefix + "/ingest/" + device
}

// AllIngest matches the ingest topic of every device.
func (Topics) AllIngest() string {
	return TopicPrefix + "/ingest/+"
}

// Processed carries a device's accepted values after metadata processing.
func (Topics) Processed(device string) string {
	return TopicPrefix + "/processed/" + device
}

// Rejected carries the reason a device's reading was dropped.
func (Topics) Rejected(device string) string {
	return TopicPrefix + "/rejected/" + device
}

// Status is the retained liveness topic of a gateway instance.
func (Topics) Status(clientID string) string {
	return TopicPrefix + "/status/" + clientID
}

// ParseIngest extracts the device id from an ingest topic.
func (Topics) ParseIngest(topic string) (string, bool) {
	device, ok := strings.CutPrefix(topic, TopicPrefix+"/ingest/")
	if !ok || device == "" || strings.ContainsAny(device, "/+#") {
		return "", false
	}
	return device, true
}
