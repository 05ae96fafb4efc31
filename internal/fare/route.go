package fare

import "fmt"

// Stop labels for the two fixed ends of every route. Intermediate pickup
// stops are labelled "pickup-1", "pickup-2", ... in route order.
const (
	LabelOrigin  = "origin"
	LabelDropoff = "dropoff"
)

// offsetTolerance absorbs floating-point noise when comparing offsets
// along the route.
const offsetTolerance = 1e-9

// Stop is a typed point along the straight pickup-to-dropoff route,
// identified by its distance from the route origin in kilometers.
type Stop struct {
	Label  string  `json:"label"`
	Offset float64 `json:"offset"`
}

// Segment is the stretch of route between two consecutive stops. Riders
// is the number of passengers whose journey traverses it; a segment with
// more than one rider is shared.
type Segment struct {
	From   Stop    `json:"from"`
	To     Stop    `json:"to"`
	Length float64 `json:"length"`
	Riders int     `json:"riders"`
}

// Shared reports whether more than one passenger traverses the segment.
func (s Segment) Shared() bool {
	return s.Riders > 1
}

// buildStops returns the ordered stop list for a route: the origin, one
// stop per distinct pickup offset, and the shared dropoff. Pickup offsets
// that coincide with the origin or the dropoff do not produce their own
// stop. The input must be sorted ascending by offset.
func buildStops(totalDistance float64, sorted []PassengerPickup) []Stop {
	stops := []Stop{{Label: LabelOrigin, Offset: 0}}

	n := 1
	for _, p := range sorted {
		last := stops[len(stops)-1]
		if p.Offset <= last.Offset+offsetTolerance {
			continue
		}
		if totalDistance-p.Offset <= offsetTolerance {
			continue
		}
		stops = append(stops, Stop{Label: fmt.Sprintf("pickup-%d", n), Offset: p.Offset})
		n++
	}

	return append(stops, Stop{Label: LabelDropoff, Offset: totalDistance})
}

// buildSegments pairs consecutive stops. Segment lengths telescope, so
// their sum is exactly the distance between the first and last stop.
func buildSegments(stops []Stop) []Segment {
	segments := make([]Segment, 0, len(stops)-1)
	for i := 0; i < len(stops)-1; i++ {
		segments = append(segments, Segment{
			From:   stops[i],
			To:     stops[i+1],
			Length: stops[i+1].Offset - stops[i].Offset,
		})
	}
	return segments
}

// boardingStop returns the last stop at or before the given offset.
func boardingStop(stops []Stop, offset float64) Stop {
	stop := stops[0]
	for _, s := range stops {
		if s.Offset <= offset+offsetTolerance {
			stop = s
		}
	}
	return stop
}
