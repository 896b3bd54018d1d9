package entity

import (
	"time"

	"github.com/paulmach/orb"
)

// 平台定位
type Location struct {
	Provider             string
	Longitude            float64
	Latitude             float64
	Time                 time.Time
	ElapsedRealtimeNanos int64
	Speed                *float64 // 米/秒
	Bearing              *float64 // 度
	Altitude             *float64 // 米
	HorizontalAccuracy   *float64
	VerticalAccuracy     *float64
	SpeedAccuracy        *float64
	BearingAccuracy      *float64
	Extras               map[string]any
	isMock               bool
}

// Point 位置坐标[经度, 纬度]
func (l Location) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

// IsMock 是否为模拟定位
func (l Location) IsMock() bool {
	return l.isMock
}

// SetMock 标记模拟定位
func (l *Location) SetMock(mock bool) {
	l.isMock = mock
}

// 导航引擎使用的定位
type FixLocation struct {
	Coordinate              orb.Point
	MonotonicTimestampNanos int64
	Time                    time.Time
	Speed                   *float64
	Bearing                 *float64
	Altitude                *float64
	AccuracyHorizontal      *float64
	VerticalAccuracy        *float64
	SpeedAccuracy           *float64
	BearingAccuracy         *float64
	Provider                string
	IsMock                  bool
	Extras                  map[string]any
}

// 需要时可以设置模拟标记的定位对象
type MockFlagSetter interface {
	SetMock(mock bool)
}
