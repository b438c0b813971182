package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tracksandtaps/taps_core/internal/models"
	"github.com/tracksandtaps/taps_core/internal/routing"
)

func wantsGeoJSON(c *fiber.Ctx) bool {
	return strings.EqualFold(c.Query("format"), "geojson")
}

// routeFeatures renders each segment as a LineString feature tagged with its kind and leg index.
// The collection carries total_km as a foreign member.
func routeFeatures(route models.TourRoute) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, seg := range route {
		line := make(orb.LineString, 0, len(seg.Coordinates))
		for _, p := range seg.Coordinates {
			line = append(line, orb.Point{p.Lon, p.Lat})
		}

		f := geojson.NewFeature(line)
		f.Properties["kind"] = string(seg.Kind)
		f.Properties["leg"] = i
		fc.Append(f)
	}
	fc.ExtraMembers = geojson.Properties{"total_km": routing.TourDistanceKm(route)}
	return fc
}

func sendGeoJSON(c *fiber.Ctx, route models.TourRoute) error {
	data, err := routeFeatures(route).MarshalJSON()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/geo+json")
	return c.Send(data)
}
