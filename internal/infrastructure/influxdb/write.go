package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementClimateProperty is the measurement holding property changes.
const MeasurementClimateProperty = "climate_property"

// WritePropertyMetric records one numeric property value.
//
// Points go to the climate_property measurement tagged by device_id and
// property, with a single float field "value". Boolean properties are
// written as 0 or 1 so every series keeps one field type.
//
// Parameters:
//   - deviceID: Bridge device id (e.g., "ac-living")
//   - property: Property name (e.g., "target_temperature")
//   - value: Numeric value
//   - at: Time of the change
//
// Example:
//
//	client.WritePropertyMetric("ac-living", "current_temperature", 26, time.Now())
func (c *Client) WritePropertyMetric(deviceID, property string, value float64, at time.Time) {
	c.WritePointWithTime(MeasurementClimateProperty,
		map[string]string{
			"device_id": deviceID,
			"property":  property,
		},
		map[string]interface{}{
			"value": value,
		},
		at,
	)
}

// WritePointWithTime writes a point with explicit tags, fields and
// timestamp. Dropped silently when the client is closed.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
