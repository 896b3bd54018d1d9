package routerefresh

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tripcore/entity"
)

// DiffProvider 比较刷新前后的路线，生成可读的变化描述
type DiffProvider interface {
	Diff(old, fresh *entity.Route, legIndex int) []string
}

// AnnotationDiff 按路段比较标注、事件与封闭
type AnnotationDiff struct{}

// Diff 从legIndex开始逐段比较，每个有变化的路段返回一行
// 格式："Updated distance, duration at leg 1"
func (AnnotationDiff) Diff(old, fresh *entity.Route, legIndex int) []string {
	if old == nil || fresh == nil {
		return nil
	}
	var out []string
	for i := max(legIndex, 0); i < len(old.Legs) && i < len(fresh.Legs); i++ {
		if names := legDiff(old.Legs[i], fresh.Legs[i]); len(names) > 0 {
			out = append(out, fmt.Sprintf("Updated %s at leg %d", strings.Join(names, ", "), i))
		}
	}
	return out
}

func legDiff(old, fresh *entity.RouteLeg) []string {
	a, b := old.Annotation, fresh.Annotation
	if a == nil {
		a = &entity.LegAnnotation{}
	}
	if b == nil {
		b = &entity.LegAnnotation{}
	}
	var names []string
	if !slices.Equal(a.Distance, b.Distance) {
		names = append(names, entity.AnnotationDistance)
	}
	if !slices.Equal(a.Duration, b.Duration) {
		names = append(names, entity.AnnotationDuration)
	}
	if !slices.Equal(a.Speed, b.Speed) {
		names = append(names, entity.AnnotationSpeed)
	}
	if !slices.Equal(a.MaxSpeed, b.MaxSpeed) {
		names = append(names, entity.AnnotationMaxSpeed)
	}
	if !slices.Equal(a.Congestion, b.Congestion) {
		names = append(names, entity.AnnotationCongestion)
	}
	incidentID := func(i *entity.Incident, _ int) string { return i.ID }
	if !slices.Equal(lo.Map(old.Incidents, incidentID), lo.Map(fresh.Incidents, incidentID)) {
		names = append(names, "incidents")
	}
	closure := func(c *entity.Closure, _ int) entity.Closure { return *c }
	if !slices.Equal(lo.Map(old.Closures, closure), lo.Map(fresh.Closures, closure)) {
		names = append(names, "closures")
	}
	return names
}
