package entity

import "maps"

// ToFixLocation 平台定位转换为导航引擎定位
// 说明：未设置的可选字段保持为nil；extras只保留float64、int64、bool、string
func ToFixLocation(l Location) FixLocation {
	return FixLocation{
		Coordinate:              l.Point(),
		MonotonicTimestampNanos: l.ElapsedRealtimeNanos,
		Time:                    l.Time,
		Speed:                   copyFloat(l.Speed),
		Bearing:                 copyFloat(l.Bearing),
		Altitude:                copyFloat(l.Altitude),
		AccuracyHorizontal:      copyFloat(l.HorizontalAccuracy),
		VerticalAccuracy:        copyFloat(l.VerticalAccuracy),
		SpeedAccuracy:           copyFloat(l.SpeedAccuracy),
		BearingAccuracy:         copyFloat(l.BearingAccuracy),
		Provider:                l.Provider,
		IsMock:                  l.IsMock(),
		Extras:                  filterExtras(l.Extras),
	}
}

// ToLocation 导航引擎定位转换为平台定位
func ToLocation(fix FixLocation) Location {
	l := Location{
		Provider:             fix.Provider,
		Longitude:            fix.Coordinate.Lon(),
		Latitude:             fix.Coordinate.Lat(),
		Time:                 fix.Time,
		ElapsedRealtimeNanos: fix.MonotonicTimestampNanos,
		Speed:                copyFloat(fix.Speed),
		Bearing:              copyFloat(fix.Bearing),
		Altitude:             copyFloat(fix.Altitude),
		HorizontalAccuracy:   copyFloat(fix.AccuracyHorizontal),
		VerticalAccuracy:     copyFloat(fix.VerticalAccuracy),
		SpeedAccuracy:        copyFloat(fix.SpeedAccuracy),
		BearingAccuracy:      copyFloat(fix.BearingAccuracy),
		Extras:               filterExtras(fix.Extras),
	}
	SetMockFlag(&l, fix.IsMock)
	return l
}

// ToLocations 批量转换
func ToLocations(fixes []FixLocation) []Location {
	out := make([]Location, len(fixes))
	for i, f := range fixes {
		out[i] = ToLocation(f)
	}
	return out
}

// SetMockFlag 尽力设置模拟定位标记
// 返回：target不支持MockFlagSetter时不做任何事并返回false
func SetMockFlag(target any, mock bool) bool {
	s, ok := target.(MockFlagSetter)
	if !ok {
		return false
	}
	s.SetMock(mock)
	return true
}

func filterExtras(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	maps.Copy(out, in)
	maps.DeleteFunc(out, func(_ string, v any) bool {
		switch v.(type) {
		case float64, int64, bool, string:
			return false
		}
		return true
	})
	return out
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
