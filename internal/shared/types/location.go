package types

import "fmt"

// Location is the reported position of a complaint. It is captured once at
// submission time and never changed afterwards.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Validate checks that the coordinates are within WGS84 bounds.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %f", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %f", l.Longitude)
	}
	return nil
}

// IsZero reports whether no location was captured.
func (l Location) IsZero() bool {
	return l.Latitude == 0 && l.Longitude == 0 && l.Address == ""
}
