package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// ErrNotLineString is returned when a geometry is not a usable LineString.
var ErrNotLineString = errors.New("geometry must be a LineString with at least two points")

// PathFromGeoJSON decodes a GeoJSON LineString (bare geometry or Feature) into a path.
func PathFromGeoJSON(raw []byte) ([]Point, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal(raw, &g); err != nil {
		var f gjson.Feature
		if ferr := json.Unmarshal(raw, &f); ferr != nil || f.Geometry == nil {
			return nil, fmt.Errorf("decode geojson: %w", err)
		}
		g = f.Geometry
	}
	return pathFromGeom(g)
}

// PathFromWKB decodes WKB bytes, as stored in the routes table, into a path.
func PathFromWKB(b []byte) ([]Point, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	return pathFromGeom(g)
}

// LineString builds a go-geom LineString from the path.
func LineString(path []Point) (*geom.LineString, error) {
	if len(path) < 2 {
		return nil, ErrNotLineString
	}
	flat := make([]float64, 0, len(path)*2)
	for _, p := range path {
		flat = append(flat, p.Lon, p.Lat)
	}
	return geom.NewLineStringFlat(geom.XY, flat).SetSRID(4326), nil
}

// PathToGeoJSON encodes the path as a GeoJSON LineString geometry.
func PathToGeoJSON(path []Point) (json.RawMessage, error) {
	ls, err := LineString(path)
	if err != nil {
		return nil, err
	}
	b, err := gjson.Marshal(ls)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func pathFromGeom(g geom.T) ([]Point, error) {
	ls, ok := g.(*geom.LineString)
	if !ok || ls.NumCoords() < 2 {
		return nil, ErrNotLineString
	}
	path := make([]Point, 0, ls.NumCoords())
	for i := 0; i < ls.NumCoords(); i++ {
		c := ls.Coord(i)
		path = append(path, Point{Lat: c.Y(), Lon: c.X()})
	}
	return path, nil
}
