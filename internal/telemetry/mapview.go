package telemetry

const (
	maxMarkers         = 500
	historyStride      = 10
	singlePositionZoom = 8
	worldZoom          = 2
)

var defaultCenter = Position{Latitude: 20, Longitude: 0}

// Marker is a map-ready point.
type Marker struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Altitude  float64 `json:"altitude"`
	Hour      int     `json:"hour"`
	Highlight bool    `json:"highlight"`
}

// AltitudeSample is one entry of the downsampled altitude history.
type AltitudeSample struct {
	Hour     int     `json:"hour"`
	Altitude float64 `json:"altitude"`
}

// MapCenter is the initial map position.
type MapCenter struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// MapView is the data a dashboard needs to render the latest summary.
type MapView struct {
	Center            MapCenter        `json:"center"`
	Zoom              int              `json:"zoom"`
	DistinctPositions int              `json:"distinct_positions"`
	Markers           []Marker         `json:"markers"`
	AltitudeHistory   []AltitudeSample `json:"altitude_history"`
}

// BuildMapView derives markers, center, zoom and altitude history from a summary.
// Markers with the highest altitude are highlighted.
func BuildMapView(summary FlightSummary) MapView {
	view := MapView{
		Center:            MapCenter{Latitude: defaultCenter.Latitude, Longitude: defaultCenter.Longitude},
		Zoom:              worldZoom,
		DistinctPositions: summary.DistinctPositions,
		Markers:           []Marker{},
		AltitudeHistory:   []AltitudeSample{},
	}
	if !summary.HasData() {
		return view
	}

	shown := summary.Points
	if len(shown) > maxMarkers {
		shown = shown[:maxMarkers]
	}

	maxAlt := shown[0].Altitude
	var sumLat, sumLon float64
	for _, p := range shown {
		sumLat += p.Latitude
		sumLon += p.Longitude
		if p.Altitude > maxAlt {
			maxAlt = p.Altitude
		}
	}

	view.Markers = make([]Marker, 0, len(shown))
	for _, p := range shown {
		view.Markers = append(view.Markers, Marker{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Altitude:  p.Altitude,
			Hour:      p.Hour,
			Highlight: p.Altitude == maxAlt,
		})
	}

	n := float64(len(shown))
	view.Center = MapCenter{Latitude: sumLat / n, Longitude: sumLon / n}
	if summary.DistinctPositions == 1 {
		view.Zoom = singlePositionZoom
	}

	for i := 0; i < len(summary.Points); i += historyStride {
		p := summary.Points[i]
		view.AltitudeHistory = append(view.AltitudeHistory, AltitudeSample{Hour: p.Hour, Altitude: p.Altitude})
	}

	return view
}
