package helper

import (
	"math"
	"sort"

	"TabiPlan-App/internal/domain/model"
)

const earthRadiusKm = 6371.0

// HaversineDistance は2地点間の距離を計算する (km)
func HaversineDistance(p1, p2 model.LatLng) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lng1 := p1.Lng * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	lng2 := p2.Lng * math.Pi / 180
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// HaversineDistanceMeters は2地点間の距離を計算する (メートル)
func HaversineDistanceMeters(p1, p2 model.LatLng) float64 {
	return HaversineDistance(p1, p2) * 1000
}

// EstimateTravelMinutes は直線距離と平均速度から所要時間を推定する（分）
func EstimateTravelMinutes(p1, p2 model.LatLng, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return HaversineDistance(p1, p2) / speedKmh * 60
}

// Centroid は複数スポットの重心座標を計算する
func Centroid(waypoints []*model.Waypoint) model.LatLng {
	if len(waypoints) == 0 {
		return model.LatLng{}
	}
	var sumLat, sumLng float64
	for _, w := range waypoints {
		ll := w.ToLatLng()
		sumLat += ll.Lat
		sumLng += ll.Lng
	}
	n := float64(len(waypoints))
	return model.LatLng{Lat: sumLat / n, Lng: sumLng / n}
}

// SortByDistanceFrom は指定地点からの直線距離が近い順にスポットを並べ替えた新しいスライスを返す
func SortByDistanceFrom(origin model.LatLng, waypoints []*model.Waypoint) []*model.Waypoint {
	sorted := make([]*model.Waypoint, len(waypoints))
	copy(sorted, waypoints)
	sort.SliceStable(sorted, func(i, j int) bool {
		return HaversineDistance(origin, sorted[i].ToLatLng()) < HaversineDistance(origin, sorted[j].ToLatLng())
	})
	return sorted
}

// FindNearest は指定地点から直線距離が最も近いスポットを見つける
func FindNearest(origin model.LatLng, waypoints []*model.Waypoint) *model.Waypoint {
	if len(waypoints) == 0 {
		return nil
	}
	nearest := waypoints[0]
	best := HaversineDistance(origin, nearest.ToLatLng())
	for _, w := range waypoints[1:] {
		if d := HaversineDistance(origin, w.ToLatLng()); d < best {
			best = d
			nearest = w
		}
	}
	return nearest
}

// ParseClockMinutes は "15:04" 形式の時刻文字列を0時からの経過分に変換する
// 不正な形式の場合は-1を返す
func ParseClockMinutes(clock string) int {
	if len(clock) != 5 || clock[2] != ':' {
		return -1
	}
	h := int(clock[0]-'0')*10 + int(clock[1]-'0')
	m := int(clock[3]-'0')*10 + int(clock[4]-'0')
	if clock[0] < '0' || clock[0] > '9' || clock[1] < '0' || clock[1] > '9' ||
		clock[3] < '0' || clock[3] > '9' || clock[4] < '0' || clock[4] > '9' {
		return -1
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return -1
	}
	return h*60 + m
}

// FormatClockMinutes は0時からの経過分を "15:04" 形式に変換する（24時以降は翌日扱いで折り返す）
func FormatClockMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	minutes = minutes % (24 * 60)
	h := minutes / 60
	m := minutes % 60
	return twoDigits(h) + ":" + twoDigits(m)
}

func twoDigits(v int) string {
	return string([]byte{byte('0' + v/10), byte('0' + v%10)})
}
