package analysis

import (
	"fmt"
	"iter"
	"math"

	"github.com/philipparndt/gomeasure/pkg/geometry"
	"github.com/philipparndt/gomeasure/pkg/stl"
)

// Summary aggregates the lengths of a set of measurements
type Summary struct {
	Count    int
	Total    float64
	Shortest float64
	Longest  float64
	Average  float64
}

// Summarize folds distances into a Summary. An empty sequence yields the
// zero Summary.
func Summarize(distances iter.Seq[float64]) Summary {
	s := Summary{Shortest: math.MaxFloat64}
	for d := range distances {
		s.Count++
		s.Total += d
		s.Shortest = math.Min(s.Shortest, d)
		s.Longest = math.Max(s.Longest, d)
	}
	if s.Count == 0 {
		return Summary{}
	}
	s.Average = s.Total / float64(s.Count)
	return s
}

// String formats the summary for status lines
func (s Summary) String() string {
	if s.Count == 0 {
		return "no measurements"
	}
	return fmt.Sprintf("%d measurements, total %s, min %s, max %s",
		s.Count, FormatMeasurement(s.Total, ""), FormatMeasurement(s.Shortest, ""), FormatMeasurement(s.Longest, ""))
}

// ModelInfo describes the surface measurements are placed on
type ModelInfo struct {
	Name      string
	Triangles int
	Min       geometry.Vector3
	Max       geometry.Vector3
	Size      geometry.Vector3
}

// DescribeModel collects the ModelInfo of model
func DescribeModel(model *stl.Model) ModelInfo {
	lo, hi := model.Bounds()
	return ModelInfo{
		Name:      model.Name,
		Triangles: len(model.Triangles),
		Min:       lo,
		Max:       hi,
		Size:      hi.Sub(lo),
	}
}

// FindNearestVertex finds the vertex in the model nearest to a given point
func FindNearestVertex(model *stl.Model, point geometry.Vector3) (geometry.Vector3, float64) {
	var nearestVertex geometry.Vector3
	minDistance := math.MaxFloat64

	for _, triangle := range model.Triangles {
		for _, vertex := range [3]geometry.Vector3{triangle.V1, triangle.V2, triangle.V3} {
			distance := point.Distance(vertex)
			if distance < minDistance {
				minDistance = distance
				nearestVertex = vertex
			}
		}
	}

	return nearestVertex, minDistance
}

// FormatMeasurement formats a length with a unit, defaulting to "units"
func FormatMeasurement(value float64, unit string) string {
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf("%.2f %s", value, unit)
}

// FormatVector formats a 3D point
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
