// Package mqtt owns the bridge's broker connection.
//
// It wraps paho.mqtt.golang and exposes three things to the bridge:
//   - a ConnectionState (disconnected, connecting, connected)
//   - an ordered stream of lifecycle Events (connect, reconnect, close, error)
//   - a guarded, fire-and-forget, retained Publish
//
// # Lifecycle
//
// Connect never waits for the broker. The paho callbacks update the state
// first and then emit the matching Event, so by the time a consumer sees
// EventConnect, Publish is already permitted:
//
//	paho OnConnect        -> StateConnected    + EventConnect
//	paho OnReconnecting   -> StateConnecting   + EventReconnect
//	paho OnConnectionLost -> StateDisconnected + EventClose
//	connect attempt fails -> StateDisconnected + EventError
//
// A dropped connection is reconnected by paho. Failed connection attempts
// are retried by the client itself every mqtt.reconnectPeriod, each failure
// emitting EventError and each retry EventReconnect, so an unreachable
// broker is never silent. reconnectPeriod 0 makes the first failure final.
// End drops the current connection; Close stops everything.
//
// # Publishing
//
// Publish silently drops a message when the client is not connected or the
// topic or payload is empty. Messages are always retained so subscribers
// receive the last reading per topic on subscribe. Delivery is not awaited;
// failures reported by paho are logged at warn level.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	for ev := range client.Events() {
//	    if ev.Kind == mqtt.EventConnect {
//	        client.Publish("room1/temperature", payload)
//	    }
//	}
package mqtt
