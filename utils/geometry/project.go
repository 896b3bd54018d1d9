package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Projection 点到折线的投影结果
type Projection struct {
	Point    orb.Point // 投影点
	Distance float64   // 原始点到投影点的距离（米）
	Along    float64   // 折线起点到投影点的沿线距离（米）
	Segment  int       // 投影所在线段下标
	Bearing  float64   // 所在线段的方位角（度）
}

// CumulativeLengths 折线各顶点的累计沿线距离（米），首元素为0
func CumulativeLengths(line orb.LineString) []float64 {
	out := make([]float64, len(line))
	for i := 1; i < len(line); i++ {
		out[i] = out[i-1] + geo.Distance(line[i-1], line[i])
	}
	return out
}

// Project 将点投影到折线上，取距离最近的线段
// 说明：线段内插值在以原始点纬度为基准的等距圆柱平面上计算，适用于城市尺度的短线段
// 返回：折线少于2个点时ok为false
func Project(line orb.LineString, p orb.Point) (res Projection, ok bool) {
	if len(line) < 2 {
		return Projection{}, false
	}
	cum := CumulativeLengths(line)
	kx := math.Cos(p.Lat() * math.Pi / 180)
	best := math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		dx, dy := (b.Lon()-a.Lon())*kx, b.Lat()-a.Lat()
		px, py := (p.Lon()-a.Lon())*kx, p.Lat()-a.Lat()
		t := 0.
		if l2 := dx*dx + dy*dy; l2 > 0 {
			t = math.Max(0, math.Min(1, (px*dx+py*dy)/l2))
		}
		q := orb.Point{a.Lon() + t*(b.Lon()-a.Lon()), a.Lat() + t*(b.Lat()-a.Lat())}
		d := geo.Distance(p, q)
		if d < best {
			best = d
			res = Projection{
				Point:    q,
				Distance: d,
				Along:    cum[i] + geo.Distance(a, q),
				Segment:  i,
				Bearing:  normalizeBearing(geo.Bearing(a, b)),
			}
		}
	}
	return res, true
}

// PointAlong 沿折线前进dist米处的点与所在线段方位角
// 说明：dist超出范围时截断到端点
func PointAlong(line orb.LineString, dist float64) (orb.Point, float64) {
	if len(line) == 0 {
		return orb.Point{}, 0
	}
	if len(line) == 1 || dist <= 0 {
		if len(line) == 1 {
			return line[0], 0
		}
		return line[0], normalizeBearing(geo.Bearing(line[0], line[1]))
	}
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		seg := geo.Distance(a, b)
		bearing := normalizeBearing(geo.Bearing(a, b))
		if dist <= seg {
			return geo.PointAtBearingAndDistance(a, bearing, dist), bearing
		}
		dist -= seg
	}
	n := len(line)
	return line[n-1], normalizeBearing(geo.Bearing(line[n-2], line[n-1]))
}

func normalizeBearing(b float64) float64 {
	b = math.Mod(b, 360)
	if b < 0 {
		b += 360
	}
	return b
}
