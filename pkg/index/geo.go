package index

import (
	"context"
	"math"

	"github.com/cuemby/graphd/pkg/sqlstore"
	"github.com/cuemby/graphd/pkg/types"
)

const defaultGeoPrecision = 6

type geoIndex struct{ db *sqlstore.Store }

func (g *geoIndex) index(ctx context.Context, t types.Triple) error {
	hash := geohashEncode(t.Object.Geo.Lat, t.Object.Geo.Lng, defaultGeoPrecision)
	_, err := g.db.DB.ExecContext(ctx,
		`INSERT OR REPLACE INTO idx_geo (geohash, entity_id, lat, lng) VALUES (?, ?, ?, ?)`,
		hash, string(t.Subject), t.Object.Geo.Lat, t.Object.Geo.Lng)
	return wrapWrite("geo index", err)
}

func (g *geoIndex) unindex(ctx context.Context, t types.Triple) error {
	if t.Object.Tag != types.TagGeoPoint {
		return nil
	}
	hash := geohashEncode(t.Object.Geo.Lat, t.Object.Geo.Lng, defaultGeoPrecision)
	_, err := g.db.DB.ExecContext(ctx,
		`DELETE FROM idx_geo WHERE geohash = ? AND entity_id = ?`, hash, string(t.Subject))
	return wrapWrite("geo unindex", err)
}

// GeoHit is one spatial search result with its distance from the query point.
type GeoHit struct {
	EntityID string
	Lat, Lng float64
	DistKm   float64
}

// Radius returns indexed points within radiusKm of (lat, lng), using
// geohash-neighborhood lookups to avoid a full table scan: only points
// whose precision-6 geohash is the center's cell or one of its 8
// neighbors are considered, so points within radiusKm outside that
// neighborhood are not returned.
func (g *geoIndex) Radius(ctx context.Context, lat, lng, radiusKm float64) ([]GeoHit, error) {
	center := geohashEncode(lat, lng, defaultGeoPrecision)
	prefixes := geohashNeighbors(center)

	var out []GeoHit
	for _, prefix := range prefixes {
		rows, err := g.db.DB.QueryContext(ctx,
			`SELECT entity_id, lat, lng FROM idx_geo WHERE geohash = ?`, prefix)
		if err != nil {
			return nil, wrapRead("geo radius scan", err)
		}
		for rows.Next() {
			var hit GeoHit
			if err := rows.Scan(&hit.EntityID, &hit.Lat, &hit.Lng); err != nil {
				rows.Close()
				return nil, wrapRead("geo radius row", err)
			}
			hit.DistKm = haversineKm(lat, lng, hit.Lat, hit.Lng)
			if hit.DistKm <= radiusKm {
				out = append(out, hit)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, wrapRead("geo radius iterate", err)
		}
		rows.Close()
	}
	return out, nil
}

// BoundingBox returns indexed points within [minLat,maxLat] x
// [minLng,maxLng], scanning only the precision-6 geohash cells (and
// their neighbors) of the box's center and four corners; points in the
// box outside those cells are not returned.
func (g *geoIndex) BoundingBox(ctx context.Context, minLat, minLng, maxLat, maxLng float64) ([]GeoHit, error) {
	corners := [][2]float64{
		{minLat, minLng}, {minLat, maxLng}, {maxLat, minLng}, {maxLat, maxLng},
		{(minLat + maxLat) / 2, (minLng + maxLng) / 2},
	}
	seen := make(map[string]bool)
	var prefixes []string
	for _, c := range corners {
		hash := geohashEncode(c[0], c[1], defaultGeoPrecision)
		for _, p := range geohashNeighbors(hash) {
			if !seen[p] {
				seen[p] = true
				prefixes = append(prefixes, p)
			}
		}
	}

	var out []GeoHit
	for _, prefix := range prefixes {
		rows, err := g.db.DB.QueryContext(ctx,
			`SELECT entity_id, lat, lng FROM idx_geo WHERE geohash = ?`, prefix)
		if err != nil {
			return nil, wrapRead("geo bbox scan", err)
		}
		for rows.Next() {
			var hit GeoHit
			if err := rows.Scan(&hit.EntityID, &hit.Lat, &hit.Lng); err != nil {
				rows.Close()
				return nil, wrapRead("geo bbox row", err)
			}
			if hit.Lat >= minLat && hit.Lat <= maxLat && hit.Lng >= minLng && hit.Lng <= maxLng {
				out = append(out, hit)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, wrapRead("geo bbox iterate", err)
		}
		rows.Close()
	}
	return out, nil
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
