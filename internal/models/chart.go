package models

import "encoding/json"

// BirthData identifies the moment and place a chart is computed for.
type BirthData struct {
	Date     string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time     string  `json:"time,omitempty"`
	City     string  `json:"city,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"tz,omitempty"`
}

// Chart is the payload returned by the ephemeris service. Its internal
// structure is opaque to this service; it is passed through to prompts and
// API responses unchanged.
type Chart struct {
	Data json.RawMessage `json:"data"`
}

// AsAny decodes the chart payload for embedding in JSON responses and prompt
// render contexts. A chart that fails to decode renders as nil.
func (c Chart) AsAny() any {
	if len(c.Data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(c.Data, &v); err != nil {
		return nil
	}
	return v
}
