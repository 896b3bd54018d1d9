package navigator

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/utils/geometry"
)

// 路段或步在主路线几何上的s坐标区间[start, end]
type span struct {
	start, end float64
}

func (sp span) length() float64 {
	return sp.end - sp.start
}

// track 主路线几何与各路段、步的s坐标
// 说明：s坐标为沿主路线几何的距离（米）；路段与步的区间按其距离之和等比缩放到几何长度
type track struct {
	route       *entity.Route
	line        orb.LineString
	lineLengths []float64
	length      float64
	legs        []span
	steps       [][]span
}

func newTrack(route *entity.Route) (*track, error) {
	line, err := route.Points()
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", route.ID(), err)
	}
	if len(line) < 2 {
		return nil, fmt.Errorf("route %s: geometry has %d points", route.ID(), len(line))
	}
	t := &track{route: route, line: line, lineLengths: geometry.CumulativeLengths(line)}
	t.length = t.lineLengths[len(t.lineLengths)-1]

	total := lo.SumBy(route.Legs, func(l *entity.RouteLeg) float64 { return l.Distance })
	k := 1.
	if total > 0 {
		k = t.length / total
	}
	s := 0.
	for _, leg := range route.Legs {
		legSpan := span{start: s, end: s + leg.Distance*k}
		stepS := s
		steps := make([]span, 0, len(leg.Steps))
		for _, step := range leg.Steps {
			steps = append(steps, span{start: stepS, end: stepS + step.Distance*k})
			stepS += step.Distance * k
		}
		t.legs = append(t.legs, legSpan)
		t.steps = append(t.steps, steps)
		s = legSpan.end
	}
	return t, nil
}

// legAt s坐标所在的路段，不早于from
func (t *track) legAt(s float64, from int) int {
	i := from
	for i+1 < len(t.legs) && s >= t.legs[i].end {
		i++
	}
	return i
}

// stepAt s坐标在路段leg中所在的步
func (t *track) stepAt(leg int, s float64) int {
	steps := t.steps[leg]
	if len(steps) == 0 {
		return 0
	}
	i := sort.Search(len(steps), func(i int) bool { return steps[i].end > s })
	return min(i, len(steps)-1)
}

// pointAt s坐标对应的位置
func (t *track) pointAt(s float64) orb.Point {
	p, _ := geometry.PointAlong(t.line, lo.Clamp(s, 0, t.length))
	return p
}

// annotationSpan 路段内几何下标区间对应的s坐标区间
func (t *track) annotationSpan(leg, from, to int) span {
	a := t.route.Legs[leg].Annotation
	if a == nil {
		return span{start: t.legs[leg].start, end: t.legs[leg].start}
	}
	from = lo.Clamp(from, 0, len(a.Distance))
	to = lo.Clamp(to, from, len(a.Distance))
	total := lo.Sum(a.Distance)
	k := 1.
	if total > 0 {
		k = t.legs[leg].length() / total
	}
	start := t.legs[leg].start + lo.Sum(a.Distance[:from])*k
	return span{start: start, end: start + lo.Sum(a.Distance[from:to])*k}
}

// roadObjects 由路线中的事件、限行步与行政区变化生成道路对象
func (t *track) roadObjects() []*entity.RoadObject {
	var out []*entity.RoadObject
	prevAdmin := ""
	for i, leg := range t.route.Legs {
		for _, inc := range leg.Incidents {
			sp := t.annotationSpan(i, inc.GeometryStart, inc.GeometryEnd)
			out = append(out, t.object("incident-"+inc.ID, entity.RoadObjectIncident, sp, func(o *entity.RoadObject) {
				o.Incident = inc
			}))
		}
		for j, step := range leg.Steps {
			sp := t.steps[i][j]
			if step.Restricted {
				out = append(out, t.object(fmt.Sprintf("restricted-%d-%d", i, j), entity.RoadObjectRestrictedArea, sp, nil))
			}
			if step.AdminIndex < 0 || step.AdminIndex >= len(leg.Admins) {
				continue
			}
			admin := leg.Admins[step.AdminIndex]
			if prevAdmin != "" && admin != prevAdmin {
				from := prevAdmin
				out = append(out, t.object(fmt.Sprintf("border-%d-%d", i, j), entity.RoadObjectCountryBorderCrossing,
					span{start: sp.start, end: sp.start}, func(o *entity.RoadObject) {
						o.Length = nil
						o.BorderCrossing = &entity.CountryBorderCrossingInfo{From: from, To: admin}
					}))
			}
			prevAdmin = admin
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartAlong < out[j].StartAlong })
	return out
}

func (t *track) object(id string, typ entity.RoadObjectType, sp span, init func(*entity.RoadObject)) *entity.RoadObject {
	length := sp.length()
	o := &entity.RoadObject{
		ID:         id,
		Type:       typ,
		Length:     &length,
		Location:   t.pointAt(sp.start),
		StartAlong: sp.start,
	}
	if init != nil {
		init(o)
	}
	return o
}

// upcoming 从s坐标看尚未驶过终点的道路对象
func upcoming(objects []*entity.RoadObject, s float64) []*entity.UpcomingRoadObject {
	out := []*entity.UpcomingRoadObject{}
	for _, o := range objects {
		end := o.StartAlong
		if o.Length != nil {
			end += *o.Length
		}
		if end < s {
			continue
		}
		out = append(out, entity.NewUpcomingRoadObject(o, o.StartAlong-s))
	}
	return out
}
