package geo

import (
	"math"

	"github.com/savegress/payguard/pkg/models"
)

const (
	earthRadiusKM = 6371.0

	// One degree of latitude spans roughly 111 km, so the default 0.1
	// degree clustering radius corresponds to about 11 km on the ground.
	kmPerDegree = 111.0
)

// Distance returns the great-circle distance between two points in
// kilometers, using the haversine formula.
func Distance(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKM * c
}

// Clusterer groups points into proximity clusters
type Clusterer struct {
	radiusKM float64
}

// NewClusterer creates a clusterer with the given radius in degrees
func NewClusterer(radiusDegrees float64) *Clusterer {
	return &Clusterer{radiusKM: radiusDegrees * kmPerDegree}
}

// Cluster assigns each point to the first existing cluster whose center
// lies within the radius, recomputing that center as the mean of its
// members; a point with no nearby cluster starts a new one. The result is
// deterministic for a given point order but not globally optimal.
func (c *Clusterer) Cluster(points []models.GeoPoint) []models.LocationCluster {
	var clusters []models.LocationCluster
	members := make([][]models.GeoPoint, 0)

	for _, p := range points {
		assigned := false
		for i := range clusters {
			if Distance(clusters[i].Center, p) <= c.radiusKM {
				members[i] = append(members[i], p)
				clusters[i].Center = meanPoint(members[i])
				clusters[i].PointCount = len(members[i])
				assigned = true
				break
			}
		}
		if !assigned {
			clusters = append(clusters, models.LocationCluster{
				Center:     p,
				PointCount: 1,
			})
			members = append(members, []models.GeoPoint{p})
		}
	}

	return clusters
}

// RadiusKM returns the clustering radius in kilometers
func (c *Clusterer) RadiusKM() float64 {
	return c.radiusKM
}

func meanPoint(points []models.GeoPoint) models.GeoPoint {
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return models.GeoPoint{Lat: lat / n, Lng: lng / n}
}

// Bangladesh bounding box. Destinations outside it are treated as
// cross-border deliveries.
const (
	bangladeshMinLat = 20.5
	bangladeshMaxLat = 26.7
	bangladeshMinLng = 88.0
	bangladeshMaxLng = 92.7
)

// InBangladesh reports whether the point falls inside the Bangladesh
// bounding box
func InBangladesh(p models.GeoPoint) bool {
	return p.Lat >= bangladeshMinLat && p.Lat <= bangladeshMaxLat &&
		p.Lng >= bangladeshMinLng && p.Lng <= bangladeshMaxLng
}

// division holds a division name with its administrative center
type division struct {
	name   string
	center models.GeoPoint
}

// Administrative divisions of Bangladesh with their capital coordinates
var divisions = []division{
	{"dhaka", models.GeoPoint{Lat: 23.8103, Lng: 90.4125}},
	{"chattogram", models.GeoPoint{Lat: 22.3569, Lng: 91.7832}},
	{"khulna", models.GeoPoint{Lat: 22.8456, Lng: 89.5403}},
	{"rajshahi", models.GeoPoint{Lat: 24.3745, Lng: 88.6042}},
	{"sylhet", models.GeoPoint{Lat: 24.8949, Lng: 91.8687}},
	{"barishal", models.GeoPoint{Lat: 22.7010, Lng: 90.3535}},
	{"rangpur", models.GeoPoint{Lat: 25.7439, Lng: 89.2752}},
	{"mymensingh", models.GeoPoint{Lat: 24.7471, Lng: 90.4203}},
}

// NearestDivision returns the name of the division whose center is closest
// to the point, or empty when the point lies outside Bangladesh.
func NearestDivision(p models.GeoPoint) string {
	if !InBangladesh(p) {
		return ""
	}

	best := ""
	bestDist := math.MaxFloat64
	for _, d := range divisions {
		if dist := Distance(d.center, p); dist < bestDist {
			best = d.name
			bestDist = dist
		}
	}
	return best
}

// DivisionNames returns the known division names in declaration order
func DivisionNames() []string {
	names := make([]string, len(divisions))
	for i, d := range divisions {
		names[i] = d.name
	}
	return names
}
