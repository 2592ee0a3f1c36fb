package model

import "time"

// Cluster 日程割り当て前の中間グルーピング（日ごとのスポット集合と重心）
type Cluster struct {
	Day         int      `json:"day"`          // 日番号（1始まり）
	WaypointIDs []string `json:"waypoint_ids"` // 割り当てられたスポットID
	Centroid    LatLng   `json:"centroid"`     // 重心座標（宿泊施設がない場合の日開始地点の推定に使用）
}

// DayPlan 1日分の訪問計画（順序決定済み）
type DayPlan struct {
	Day               int      `json:"day"`                           // 日番号（1始まり）
	WaypointIDs       []string `json:"waypoint_ids"`                  // 訪問順のスポットID
	ExcludedIDs       []string `json:"excluded_ids,omitempty"`        // この日から除外されたスポットID
	LodgingBreakIndex *int     `json:"lodging_break_index,omitempty"` // 宿チェックインを挿入する位置（この位置の前に挿入）
}

// AnchorKind 日の起点・終点の種別
type AnchorKind string

// AnchorKindConstants 起点・終点種別の定数
const (
	AnchorTripOrigin       AnchorKind = "trip_origin"       // 旅行の出発地点
	AnchorTripDestination  AnchorKind = "trip_destination"  // 旅行の最終目的地
	AnchorLodging          AnchorKind = "lodging"           // 宿泊施設
	AnchorPreviousLastStop AnchorKind = "previous_last_stop" // 前日の最後の訪問スポット
)

// DayAnchor 日の起点または終点の記述子
type DayAnchor struct {
	Kind     AnchorKind `json:"kind"`
	Name     string     `json:"name,omitempty"`
	PlaceID  string     `json:"place_id,omitempty"`
	Location *Location  `json:"location,omitempty"`
}

// TransportSegment 連続する2スポット間の移動区間
type TransportSegment struct {
	Mode            TransportMode   `json:"mode"`
	DurationMinutes float64         `json:"duration_minutes"`
	DistanceMeters  float64         `json:"distance_meters,omitempty"`
	Description     string          `json:"description,omitempty"` // 「徒歩 約7分」のような表示用説明
	FareYen         int             `json:"fare_yen,omitempty"`
	Polyline        string          `json:"polyline,omitempty"`
	TransitDetails  *TransitDetails `json:"transit_details,omitempty"`
	CarGuides       []CarGuide      `json:"car_guides,omitempty"`
	Estimated       bool            `json:"estimated,omitempty"` // 直線距離フォールバックによる推定値
}

// GeoPolygon PostGIS POLYGON 型に対応する構造体
type GeoPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// ScheduleItem 1日の行程内の1訪問
type ScheduleItem struct {
	Order           int               `json:"order"`                      // 訪問順（1始まり）
	PlaceID         string            `json:"place_id"`
	Name            string            `json:"name"`
	Location        *Location         `json:"location,omitempty"`
	ArrivalTime     string            `json:"arrival_time"`               // "15:04"
	DepartureTime   string            `json:"departure_time"`             // "15:04"
	StayMinutes     int               `json:"stay_minutes"`
	IsFixed         bool              `json:"is_fixed"`
	TransportToNext *TransportSegment `json:"transport_to_next,omitempty"` // 次のスポットへの移動（最後の項目はnil）
}

// LodgingEvent その日の宿チェックインイベント
type LodgingEvent struct {
	Name             string            `json:"name"`
	Address          string            `json:"address,omitempty"`
	Location         *Location         `json:"location"`
	CheckInTime      string            `json:"check_in_time"`              // "15:04"
	DurationMinutes  int               `json:"duration_minutes"`           // チェックイン手続きの所要時間
	TransportTo      *TransportSegment `json:"transport_to,omitempty"`     // 宿への移動
	TransportFrom    *TransportSegment `json:"transport_from,omitempty"`   // 宿からの移動（後続の訪問がある場合）
	AfterOrder       int               `json:"after_order"`                // この訪問順の後に挿入される
}

// DailyItinerary 1日分の確定した行程
type DailyItinerary struct {
	Day                 int               `json:"day"`                   // 日番号（1始まり）
	Date                string            `json:"date"`                  // "2006-01-02"
	StartTime           string            `json:"start_time"`            // "15:04"
	EndTime             string            `json:"end_time"`              // "15:04"
	Items               []ScheduleItem    `json:"items"`                 // 訪問順の行程
	DayOrigin           *DayAnchor        `json:"day_origin"`            // この日の起点
	DayDestination      *DayAnchor        `json:"day_destination,omitempty"` // この日の終点（中日で宿がない場合はnil）
	TransportFromOrigin *TransportSegment `json:"transport_from_origin,omitempty"` // 起点から最初のスポットへの移動
	TransportToDest     *TransportSegment `json:"transport_to_destination,omitempty"` // 最後のスポットから終点への移動
	Lodging             *LodgingEvent     `json:"lodging,omitempty"`     // 宿チェックインイベント
	TotalDistanceMeters float64           `json:"total_distance_meters"`
	TotalTravelMinutes  float64           `json:"total_travel_minutes"`
	TotalStayMinutes    int               `json:"total_stay_minutes"`
	PlaceCount          int               `json:"place_count"`
	RouteBounds         *GeoPolygon       `json:"route_bounds,omitempty"` // 1日の行程全体を覆う境界ボックス
}

// OptimizeStats 最適化実行の統計情報
type OptimizeStats struct {
	TotalDistanceMeters   float64 `json:"total_distance_meters"`
	TotalTravelMinutes    float64 `json:"total_travel_minutes"`
	TotalStayMinutes      int     `json:"total_stay_minutes"`
	TotalPlaces           int     `json:"total_places"`
	AvgDistancePerDay     float64 `json:"avg_distance_per_day"`
	AvgTravelMinutesPerDay float64 `json:"avg_travel_minutes_per_day"`
	OptimizationMillis    int64   `json:"optimization_millis"`    // 最適化の実時間（ミリ秒）
	ImprovementPercent    float64 `json:"improvement_percent"`    // 初期解に対するコスト改善率（全日のコスト加重合計）
}

// OptimizeResult 最適化実行の最終結果
type OptimizeResult struct {
	Success     bool                  `json:"success"`
	TripID      string                `json:"trip_id"`
	RunID       string                `json:"run_id"` // 実行ごとに採番されるID
	Itineraries []DailyItinerary      `json:"itineraries"`
	Unassigned  []UnassignedPlaceInfo `json:"unassigned,omitempty"`
	Errors      []OptimizeError       `json:"errors,omitempty"` // 致命的エラーと警告の両方
	Stats       OptimizeStats         `json:"stats"`
	CompletedAt time.Time             `json:"completed_at"`
}

// HasFatalError 致命的エラーが含まれているかチェック
func (r *OptimizeResult) HasFatalError() bool {
	for i := range r.Errors {
		if r.Errors[i].IsFatal() {
			return true
		}
	}
	return false
}

// ItineraryStatus クライアントに見せる行程のライフサイクル状態
type ItineraryStatus string

// ItineraryStatusConstants 行程状態の定数
const (
	StatusDraft      ItineraryStatus = "draft"      // 作成中（未最適化）
	StatusOptimizing ItineraryStatus = "optimizing" // 最適化実行中
	StatusOptimized  ItineraryStatus = "optimized"  // 最適化完了
	StatusCompleted  ItineraryStatus = "completed"  // 旅行終了
)

// FirestoreItinerary Firestoreに保存する1日分の行程（TTL付きキャッシュ）
type FirestoreItinerary struct {
	TripID    string         `firestore:"trip_id"`
	RunID     string         `firestore:"run_id"`
	Day       int            `firestore:"day"`
	Itinerary DailyItinerary `firestore:"itinerary"`
	ExpireAt  time.Time      `firestore:"expireAt"`
}

// ToFirestoreItinerary DailyItineraryをFirestore保存用に変換する
func (d *DailyItinerary) ToFirestoreItinerary(tripID, runID string, ttlHours int) *FirestoreItinerary {
	return &FirestoreItinerary{
		TripID:    tripID,
		RunID:     runID,
		Day:       d.Day,
		Itinerary: *d,
		ExpireAt:  time.Now().Add(time.Duration(ttlHours) * time.Hour),
	}
}
