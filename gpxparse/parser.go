// Package gpxparse decodes GPX XML track data into the normalized
// activity model. GPX files carry no distance channel, so cumulative
// distance is derived by accumulating great-circle distance between
// consecutive positions, and speed from the distance and time deltas.
package gpxparse

import (
	"encoding/xml"
	"fmt"
	"sort"
	"time"

	"github.com/golang/geo/s2"

	"github.com/lucasjlepore/traincycle/activity"
)

const earthRadiusMeters = 6371000.0

type gpxDocument struct {
	XMLName xml.Name   `xml:"gpx"`
	Tracks  []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Type     string       `xml:"type"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat        float64  `xml:"lat,attr"`
	Lon        float64  `xml:"lon,attr"`
	Elevation  *float64 `xml:"ele"`
	Time       string   `xml:"time"`
	Extensions struct {
		// Heart rate arrives in the vendor-namespaced
		// TrackPointExtension element (gpxtpx and friends); matching on
		// local names keeps the parser namespace-agnostic.
		TrackPointExtension struct {
			HeartRate *int `xml:"hr"`
		} `xml:"TrackPointExtension"`
		HeartRate *int `xml:"hr"`
	} `xml:"extensions"`
}

// Parse decodes a GPX byte stream into an Activity. Malformed XML, a
// document whose root element is not gpx, or a track with zero usable
// points fails with activity.ErrCorruptFile.
func Parse(data []byte) (*activity.Activity, error) {
	var doc gpxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed gpx xml: %v", activity.ErrCorruptFile, err)
	}

	sport := ""
	samples := make([]activity.Sample, 0, 256)
	for _, trk := range doc.Tracks {
		if sport == "" && trk.Type != "" {
			sport = trk.Type
		}
		for _, seg := range trk.Segments {
			for _, pt := range seg.Points {
				s, ok := samplesFromPoint(pt)
				if !ok {
					continue
				}
				samples = append(samples, s)
			}
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: gpx track has no points", activity.ErrCorruptFile)
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
	deriveDistanceAndSpeed(samples)
	return activity.New(activity.FormatGPX, sport, samples, activity.SourceDigest(data))
}

func samplesFromPoint(pt gpxPoint) (activity.Sample, bool) {
	// Points without a parseable timestamp cannot be placed on the
	// activity timeline.
	ts, err := time.Parse(time.RFC3339, pt.Time)
	if err != nil {
		return activity.Sample{}, false
	}

	lat, lon := pt.Lat, pt.Lon
	s := activity.Sample{
		Time:      ts.UTC(),
		Lat:       &lat,
		Lon:       &lon,
		Elevation: pt.Elevation,
	}
	if hr := pt.Extensions.TrackPointExtension.HeartRate; hr != nil {
		s.HeartRate = hr
	} else if hr := pt.Extensions.HeartRate; hr != nil {
		s.HeartRate = hr
	}
	return s, true
}

// deriveDistanceAndSpeed fills cumulative distance from consecutive
// positions and instantaneous speed from segment deltas. Samples must be
// ordered by time; a zero or negative time delta yields zero speed, never
// a division by zero.
func deriveDistanceAndSpeed(samples []activity.Sample) {
	cumulative := 0.0
	for i := range samples {
		if i == 0 {
			samples[i].Distance = 0
			samples[i].Speed = new(float64)
			continue
		}
		prev, cur := &samples[i-1], &samples[i]
		seg := 0.0
		if prev.Lat != nil && prev.Lon != nil && cur.Lat != nil && cur.Lon != nil {
			seg = greatCircleMeters(*prev.Lat, *prev.Lon, *cur.Lat, *cur.Lon)
		}
		cumulative += seg
		cur.Distance = cumulative

		speed := 0.0
		if dt := cur.Time.Sub(prev.Time).Seconds(); dt > 0 {
			speed = seg / dt
		}
		cur.Speed = &speed
	}
}

// greatCircleMeters returns the haversine distance between two positions.
func greatCircleMeters(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusMeters
}
