// Package stations loads the static station reference dataset and resolves
// the nearest station to a position. The dataset is a CSV with columns
// lng,lat,type,line,name (one row per station/line combination).
package stations

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/msabate/transit-logger/internal/domain"
)

// Resolver answers nearest-station queries over the loaded dataset.
// The zero dataset resolves nothing; callers must tolerate that and fall
// back to the "Unknown" station sentinel.
type Resolver struct {
	stations []domain.Station
}

// LoadFile reads the station CSV at path and builds a Resolver.
func LoadFile(path string) (*Resolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stations.LoadFile: %w", err)
	}
	defer f.Close()
	r, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("stations.LoadFile: %s: %w", path, err)
	}
	return r, nil
}

// Load parses the station CSV from r. A UTF-8 BOM on the first cell is
// stripped; the header row and rows with missing or non-numeric
// coordinates are skipped, matching the tolerant handling the dataset has
// always needed.
func Load(r io.Reader) (*Resolver, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // dataset rows are not perfectly uniform
	cr.TrimLeadingSpace = true

	var out []domain.Station
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stations.Load: %w", err)
		}
		if first {
			first = false
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			// Header row: first column is not a coordinate.
			if _, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64); err != nil {
				continue
			}
		}
		if len(rec) < 5 {
			continue
		}

		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		line := strings.TrimSpace(rec[3])
		name := strings.TrimSpace(rec[4])
		if lonErr != nil || latErr != nil || line == "" || name == "" {
			continue
		}

		out = append(out, domain.Station{
			Name: name,
			Line: line,
			Type: strings.TrimSpace(rec[2]),
			Lat:  lat,
			Lon:  lon,
		})
	}

	return &Resolver{stations: out}, nil
}

// Len returns the number of loaded stations.
func (r *Resolver) Len() int { return len(r.stations) }

// Nearest returns the station closest to pos, with DistanceM populated.
// ok is false when the dataset is empty.
func (r *Resolver) Nearest(pos domain.Position) (domain.Station, bool) {
	if len(r.stations) == 0 {
		return domain.Station{}, false
	}

	best := r.stations[0]
	bestDist := haversineM(pos.Lat, pos.Lon, best.Lat, best.Lon)
	for _, s := range r.stations[1:] {
		if d := haversineM(pos.Lat, pos.Lon, s.Lat, s.Lon); d < bestDist {
			best, bestDist = s, d
		}
	}
	best.DistanceM = bestDist
	return best, true
}

// haversineM is the great-circle distance between two points in meters.
func haversineM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusM = 6371000

	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dp := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dp/2)*math.Sin(dp/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
