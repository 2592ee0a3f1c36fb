package repository

import (
	"github.com/paulmach/orb"

	"TabiPlan-App/internal/domain/model"
)

// GeoPoint PostGIS POINT 型の JSON 表現
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// LocationToGeoPoint model.Location を PostGIS POINT 形式に変換
func LocationToGeoPoint(location *model.Location) *GeoPoint {
	if location == nil {
		return nil
	}

	point := orb.Point{location.Longitude, location.Latitude}

	return &GeoPoint{
		Type:        "Point",
		Coordinates: []float64{point.Lon(), point.Lat()},
	}
}

// GeoPointToLocation PostGIS POINT を model.Location に変換
func GeoPointToLocation(geoPoint *GeoPoint) *model.Location {
	if geoPoint == nil || len(geoPoint.Coordinates) < 2 {
		return nil
	}

	point := orb.Point{geoPoint.Coordinates[0], geoPoint.Coordinates[1]}

	return &model.Location{
		Latitude:  point.Lat(),
		Longitude: point.Lon(),
	}
}

// CreateItineraryBounds 1日の行程に含まれる全地点から境界ボックスを作成
// 地図表示の初期ビューポート計算に使用する
func CreateItineraryBounds(itinerary *model.DailyItinerary) *model.GeoPolygon {
	if itinerary == nil {
		return nil
	}

	points := make([]orb.Point, 0, len(itinerary.Items)+3)
	for i := range itinerary.Items {
		if loc := itinerary.Items[i].Location; loc != nil {
			points = append(points, orb.Point{loc.Longitude, loc.Latitude})
		}
	}
	if itinerary.DayOrigin != nil && itinerary.DayOrigin.Location != nil {
		loc := itinerary.DayOrigin.Location
		points = append(points, orb.Point{loc.Longitude, loc.Latitude})
	}
	if itinerary.DayDestination != nil && itinerary.DayDestination.Location != nil {
		loc := itinerary.DayDestination.Location
		points = append(points, orb.Point{loc.Longitude, loc.Latitude})
	}
	if itinerary.Lodging != nil && itinerary.Lodging.Location != nil {
		loc := itinerary.Lodging.Location
		points = append(points, orb.Point{loc.Longitude, loc.Latitude})
	}

	if len(points) == 0 {
		return nil
	}

	// orb.Bound を使用して境界ボックスを作成
	bound := orb.Bound{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		bound = bound.Extend(p)
	}

	// 少し余裕を持たせる（約100m程度）
	padding := 0.001 // 約111m
	bound = bound.Pad(padding)

	minLng := bound.Min.Lon()
	minLat := bound.Min.Lat()
	maxLng := bound.Max.Lon()
	maxLat := bound.Max.Lat()

	coordinates := [][][]float64{
		{
			{minLng, minLat}, // 左下
			{maxLng, minLat}, // 右下
			{maxLng, maxLat}, // 右上
			{minLng, maxLat}, // 左上
			{minLng, minLat}, // 閉じる
		},
	}

	return &model.GeoPolygon{
		Type:        "Polygon",
		Coordinates: coordinates,
	}
}
