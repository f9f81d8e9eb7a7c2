package api

import (
	"github.com/mr1hm/go-alert-board/internal/feed"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   *Geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON converts a rendered feed. Alerts without a location become
// features with a null geometry.
func toGeoJSON(alerts []feed.DisplayAlert) FeatureCollection {
	features := make([]Feature, 0, len(alerts))

	for _, a := range alerts {
		f := Feature{
			Type: "Feature",
			Properties: map[string]any{
				"id":             a.ID,
				"name":           a.AuthorName,
				"message":        a.Message,
				"timestamp":      a.Timestamp,
				"verified_votes": a.VerifiedVotes,
				"discard_votes":  a.DiscardVotes,
				"comments_count": a.CommentsCount,
				"share_url":      a.ShareURL,
			},
		}
		if a.Location != nil {
			f.Geometry = &Geometry{
				Type:        "Point",
				Coordinates: []float64{a.Location.Lng, a.Location.Lat},
			}
		}
		if a.DistanceKm != nil {
			f.Properties["distance_km"] = *a.DistanceKm
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
