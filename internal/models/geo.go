package models

// GeoLocation is a resolved place: coordinates plus the IANA timezone needed
// for chart computation.
type GeoLocation struct {
	City     string  `json:"city"`
	Country  string  `json:"country,omitempty"`
	Admin1   string  `json:"admin1,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
}

// DefaultLocation is returned whenever geocoding fails or the input is empty.
func DefaultLocation() GeoLocation {
	return GeoLocation{
		City:     "Shanghai",
		Country:  "China",
		Lat:      31.2304,
		Lon:      121.4737,
		Timezone: "Asia/Shanghai",
	}
}
