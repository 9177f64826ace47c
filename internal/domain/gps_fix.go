package domain

import "time"

// GeoPoint is an immutable latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the point lies within WGS84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// GpsFix is a single position report from a driver device. Fixes are
// append-only: full history is retained for route replay, while the latest
// fix per shipment is materialized separately for live queries.
type GpsFix struct {
	ID         string
	ShipmentID string
	DriverID   string
	Latitude   float64
	Longitude  float64
	Heading    *float64
	Speed      *float64
	Accuracy   *float64
	RecordedAt time.Time
	InsertedAt time.Time
}

// Point returns the fix coordinates as a GeoPoint.
func (f *GpsFix) Point() GeoPoint {
	return GeoPoint{Latitude: f.Latitude, Longitude: f.Longitude}
}
