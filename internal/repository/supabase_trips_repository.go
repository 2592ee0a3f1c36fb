package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"TabiPlan-App/internal/database"
	"TabiPlan-App/internal/domain/model"
	"TabiPlan-App/internal/domain/repository"
)

// SupabaseTripsRepository Supabase REST API経由の旅行データ読み出しリポジトリ
// 直接DB接続が使えない環境（anonキーのみ）向けのTripsRepository実装
type SupabaseTripsRepository struct {
	client *database.SupabaseClient
}

// NewSupabaseTripsRepository 新しいSupabaseTripsRepositoryインスタンスを作成
func NewSupabaseTripsRepository(client *database.SupabaseClient) repository.TripsRepository {
	return &SupabaseTripsRepository{
		client: client,
	}
}

// supabaseTrip tripsテーブルのREST表現
type supabaseTrip struct {
	ID            string                `json:"id"`
	Days          int                   `json:"days"`
	StartDate     string                `json:"start_date"`
	StartLocation *model.Geometry       `json:"start_location"`
	EndLocation   *model.Geometry       `json:"end_location"`
	Lodging       *model.LodgingInfo    `json:"lodging"`
	DayLimits     []model.DayTimeLimit  `json:"day_limits"`
	AllowedModes  []model.TransportMode `json:"allowed_modes"`
}

// supabaseTripPlace trip_placesテーブルのREST表現
type supabaseTripPlace struct {
	ID             string          `json:"id"`
	Position       int             `json:"position"`
	Name           string          `json:"name"`
	Location       *model.Geometry `json:"location"`
	StayMinutes    int             `json:"stay_minutes"`
	IsFixed        bool            `json:"is_fixed"`
	FixedDay       *int            `json:"fixed_day"`
	FixedDate      *string         `json:"fixed_date"`
	FixedStartTime *string         `json:"fixed_at"`
	Priority       *int            `json:"priority"`
}

// GetTripInput は指定された旅行の最適化入力を読み出す
func (r *SupabaseTripsRepository) GetTripInput(ctx context.Context, tripID string) (*model.TripInput, error) {
	data, _, err := r.client.GetClient().From("trips").Select("*", "exact", false).Eq("id", tripID).Execute()
	if err != nil {
		return nil, fmt.Errorf("旅行データの取得失敗: %w", err)
	}

	var trips []supabaseTrip
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, fmt.Errorf("旅行データのJSONアンマーシャル失敗: %w", err)
	}
	if len(trips) == 0 {
		return nil, fmt.Errorf("旅行 %s が見つかりません", tripID)
	}
	row := trips[0]

	startDate, err := time.Parse("2006-01-02", row.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_dateのパース失敗: %w", err)
	}

	trip := &model.TripInput{
		TripID:       row.ID,
		Days:         row.Days,
		StartDate:    startDate,
		Lodging:      row.Lodging,
		DayLimits:    row.DayLimits,
		AllowedModes: row.AllowedModes,
	}
	if row.StartLocation != nil {
		loc := &model.Location{}
		loc.FromGeometry(row.StartLocation)
		trip.StartLocation = loc
	}
	if row.EndLocation != nil {
		loc := &model.Location{}
		loc.FromGeometry(row.EndLocation)
		trip.EndLocation = loc
	}

	waypoints, err := r.getWaypoints(tripID)
	if err != nil {
		return nil, err
	}
	trip.Waypoints = waypoints

	return trip, nil
}

// getWaypoints 旅行に属する訪問候補スポットを入力順で読み出す
func (r *SupabaseTripsRepository) getWaypoints(tripID string) ([]*model.Waypoint, error) {
	data, _, err := r.client.GetClient().From("trip_places").
		Select("*", "exact", false).
		Eq("trip_id", tripID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("スポットデータの取得失敗: %w", err)
	}

	var places []supabaseTripPlace
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("スポットデータのJSONアンマーシャル失敗: %w", err)
	}
	sort.Slice(places, func(i, j int) bool {
		return places[i].Position < places[j].Position
	})

	waypoints := make([]*model.Waypoint, 0, len(places))
	for _, p := range places {
		w := &model.Waypoint{
			ID:                  p.ID,
			Name:                p.Name,
			StayDurationMinutes: p.StayMinutes,
			IsFixed:             p.IsFixed,
			FixedDay:            p.FixedDay,
			FixedDate:           p.FixedDate,
			FixedStartTime:      p.FixedStartTime,
			Priority:            p.Priority,
		}
		if p.Location != nil {
			loc := &model.Location{}
			loc.FromGeometry(p.Location)
			w.Location = loc
		}
		waypoints = append(waypoints, w)
	}
	return waypoints, nil
}
