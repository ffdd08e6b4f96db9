// Package mqtt provides MQTT connectivity for nsot-jobs.
//
// The job host uses the broker in two directions:
//   - outbound: each job result on nsot/jobs/{slug}/result and each entry
//     on nsot/jobs/{slug}/log
//   - inbound: run requests on nsot/jobs/{slug}/run (optional trigger)
//
// A retained status message on nsot/system/status reports online/offline,
// with a Last Will so unexpected disconnects are visible.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.JobResult("device-lookup-job")
//	err = client.PublishJSON(topic, result, false)
//
// Tests that need a broker are behind the integration build tag and expect
// one at 127.0.0.1:1883.
package mqtt
