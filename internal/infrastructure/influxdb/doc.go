// Package influxdb writes climate property history to InfluxDB v2.
//
// It wraps influxdb-client-go's non-blocking write API. Every numeric or
// boolean property change pushed by a synchronization engine becomes one
// climate_property point:
//
//	climate_property,device_id=ac-living,property=target_temperature value=22
//
// InfluxDB is optional. Connect returns ErrDisabled when influxdb.enabled is
// false and the bridge runs without it.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) { log.Warn("influx write", "error", err) })
//	client.WritePropertyMetric("ac-living", "current_temperature", 26, time.Now())
//
// Batch size and flush interval come from config.yaml (batch_size,
// flush_interval in seconds).
package influxdb
