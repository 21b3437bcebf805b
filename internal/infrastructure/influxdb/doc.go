// Package influxdb writes the bridge's operational counters to InfluxDB v2.
//
// Only counters are written (readings received, published, suppressed,
// device errors, connection events). Sensor readings go to MQTT and are
// not stored here.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteBridgeStats("hygrobridge", map[string]int64{"published": 42}, time.Now())
//
// Writes are batched by the client library (batchSize, flushInterval) and
// never block the caller. Write failures are delivered to the SetOnError
// callback.
package influxdb
