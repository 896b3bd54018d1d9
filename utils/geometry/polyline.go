package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"
)

// polyline6编码，坐标顺序为[纬度, 经度]，精度1e-6
var codec6 = polyline.Codec{Dim: 2, Scale: 1e6}

// EncodePolyline6 将[经度, 纬度]点列编码为polyline6字符串
func EncodePolyline6(points []orb.Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat(), p.Lon()}
	}
	return string(codec6.EncodeCoords(nil, coords))
}

// DecodePolyline6 将polyline6字符串解码为[经度, 纬度]点列
func DecodePolyline6(s string) (orb.LineString, error) {
	coords, rest, err := codec6.DecodeCoords([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("decode polyline6: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode polyline6: %d trailing bytes", len(rest))
	}
	line := make(orb.LineString, len(coords))
	for i, c := range coords {
		line[i] = orb.Point{c[1], c[0]}
	}
	return line, nil
}
