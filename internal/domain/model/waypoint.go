package model

import "time"

// LatLng 緯度経度を表す基本的な型（経路検索・行列構築で使用）
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location リクエスト・DBで使用する位置情報
type Location struct {
	Latitude  float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

// ToLatLng Location を LatLng に変換
func (l *Location) ToLatLng() LatLng {
	return LatLng{Lat: l.Latitude, Lng: l.Longitude}
}

// IsValid 緯度経度が正常な範囲内かチェック
func (l *Location) IsValid() bool {
	if l == nil {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// Geometry PostGIS GEOMETRY型に対応する構造体
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [longitude, latitude]
}

// ToGeometry Location を PostGIS GEOMETRY 型に変換
func (l *Location) ToGeometry() *Geometry {
	return &Geometry{
		Type:        "Point",
		Coordinates: []float64{l.Longitude, l.Latitude},
	}
}

// FromGeometry PostGIS GEOMETRY 型から Location に変換
func (l *Location) FromGeometry(g *Geometry) {
	if g != nil && len(g.Coordinates) >= 2 {
		l.Longitude = g.Coordinates[0]
		l.Latitude = g.Coordinates[1]
	}
}

// Waypoint 訪問候補スポットを表すモデル（1回の最適化の不変な入力）
type Waypoint struct {
	ID                  string    `json:"id" db:"id"`                               // ユニークなスポットID
	Name                string    `json:"name" db:"name"`                           // スポット名
	Location            *Location `json:"location" db:"location"`                   // 位置情報
	StayDurationMinutes int       `json:"stay_duration_minutes" db:"stay_minutes"`  // 滞在時間（分）
	IsFixed             bool      `json:"is_fixed" db:"is_fixed"`                   // 時間指定ありフラグ
	FixedDay            *int      `json:"fixed_day,omitempty" db:"fixed_day"`       // 固定する日番号（1始まり）
	FixedDate           *string   `json:"fixed_date,omitempty" db:"fixed_date"`     // 固定する日付 "2006-01-02"
	FixedStartTime      *string   `json:"fixed_start_time,omitempty" db:"fixed_at"` // 固定開始時刻 "15:04"
	Priority            *int      `json:"priority,omitempty" db:"priority"`         // 優先度（小さいほど優先）
}

// ToLatLng Waypointの位置情報をLatLng型に変換
func (w *Waypoint) ToLatLng() LatLng {
	if w.Location != nil {
		return w.Location.ToLatLng()
	}
	return LatLng{}
}

// PriorityValue 優先度を取得する（未設定は最低優先度として扱う）
func (w *Waypoint) PriorityValue() int {
	if w.Priority != nil {
		return *w.Priority
	}
	return defaultPriority
}

// ResolveFixedDay 固定日番号を解決する（FixedDay優先、なければFixedDateとトリップ開始日から算出）
// 解決できない場合は0を返す
func (w *Waypoint) ResolveFixedDay(tripStartDate time.Time) int {
	if w.FixedDay != nil && *w.FixedDay >= 1 {
		return *w.FixedDay
	}
	if w.FixedDate != nil {
		if d, err := time.Parse("2006-01-02", *w.FixedDate); err == nil {
			day := int(d.Sub(tripStartDate.Truncate(24*time.Hour)).Hours()/24) + 1
			if day >= 1 {
				return day
			}
		}
	}
	return 0
}

// DayTimeLimit 1日あたりの時間制約
type DayTimeLimit struct {
	Day        int    `json:"day" db:"day"`                 // 日番号（1始まり）
	MaxMinutes int    `json:"max_minutes" db:"max_minutes"` // 滞在+移動の上限（分）
	StartTime  string `json:"start_time" db:"start_time"`   // 行動開始時刻 "15:04"
	EndTime    string `json:"end_time" db:"end_time"`       // 行動終了時刻 "15:04"
}

// LodgingInfo 宿泊施設の情報（任意）
type LodgingInfo struct {
	Name         string    `json:"name" db:"name"`
	Address      string    `json:"address,omitempty" db:"address"`
	Location     *Location `json:"location" db:"location"`
	CheckInTime  string    `json:"check_in_time" db:"check_in_time"`   // "15:04"
	CheckOutTime string    `json:"check_out_time" db:"check_out_time"` // "15:04"
	FromDate     *string   `json:"from_date,omitempty" db:"from_date"` // 適用開始日 "2006-01-02"
	ToDate       *string   `json:"to_date,omitempty" db:"to_date"`     // 適用終了日 "2006-01-02"
}

// CoversDate 指定日付がこの宿泊施設の適用範囲内かチェック
func (l *LodgingInfo) CoversDate(date time.Time) bool {
	if l == nil {
		return false
	}
	day := date.Format("2006-01-02")
	if l.FromDate != nil && day < *l.FromDate {
		return false
	}
	if l.ToDate != nil && day > *l.ToDate {
		return false
	}
	return true
}

// TripInput 1回の最適化実行への入力（実行中は変更されない）
type TripInput struct {
	TripID        string          `json:"trip_id"`
	Days          int             `json:"days"`                    // 旅行日数
	StartDate     time.Time       `json:"start_date"`              // 旅行開始日（日番号→日付の解決に使用）
	StartLocation *Location       `json:"start_location"`          // 出発地点
	EndLocation   *Location       `json:"end_location,omitempty"`  // 最終目的地（省略時は最終日の最後のスポット）
	Lodging       *LodgingInfo    `json:"lodging,omitempty"`       // 宿泊施設（任意）
	DayLimits     []DayTimeLimit  `json:"day_limits,omitempty"`    // 日ごとの時間制約（省略時はデフォルト）
	Waypoints     []*Waypoint     `json:"waypoints"`               // 訪問候補スポット一覧
	AllowedModes  []TransportMode `json:"allowed_modes,omitempty"` // 利用可能な移動手段
}

// DateForDay 日番号から日付を算出する（1始まり）
func (t *TripInput) DateForDay(day int) time.Time {
	return t.StartDate.AddDate(0, 0, day-1)
}

// LimitForDay 指定日の時間制約を取得する（未設定ならnil）
func (t *TripInput) LimitForDay(day int) *DayTimeLimit {
	for i := range t.DayLimits {
		if t.DayLimits[i].Day == day {
			return &t.DayLimits[i]
		}
	}
	return nil
}

// LodgingForDay 指定日に適用される宿泊施設を取得する（適用外ならnil）
func (t *TripInput) LodgingForDay(day int) *LodgingInfo {
	if t.Lodging == nil || t.Lodging.Location == nil {
		return nil
	}
	if t.Lodging.CoversDate(t.DateForDay(day)) {
		return t.Lodging
	}
	return nil
}
