// Package mqtt connects the sensor gateway to its MQTT broker.
//
// Devices publish raw readings to sensorgw/ingest/{device}. The gateway
// subscribes with a single-level wildcard, and publishes processed values
// to sensorgw/processed/{device} and rejections to sensorgw/rejected/{device}.
// Gateway liveness is announced on sensorgw/status/{client_id} as a retained
// message, with a Last Will covering unexpected disconnects.
//
//	Sensors → broker → gateway → broker → consumers
//
// The client reconnects automatically and restores its subscriptions after
// every reconnect.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllIngest(), 1,
//	    func(topic string, payload []byte) error {
//	        device, _ := mqtt.Topics{}.ParseIngest(topic)
//	        return handle(device, payload)
//	    })
package mqtt
