package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"TabiPlan-App/internal/domain/model"
	"TabiPlan-App/internal/domain/repository"
	"TabiPlan-App/internal/infrastructure/database"
)

// PostgresTripsRepository PostgreSQL直接接続による旅行データの読み出しリポジトリ
// 旅行・スポット・固定スケジュールを結合して最適化入力（TripInput）を組み立てる
type PostgresTripsRepository struct {
	client *database.PostgreSQLClient
}

// NewPostgresTripsRepository 新しいPostgresTripsRepositoryインスタンスを作成
func NewPostgresTripsRepository(client *database.PostgreSQLClient) repository.TripsRepository {
	return &PostgresTripsRepository{
		client: client,
	}
}

// tripRow tripsテーブルの1行を受け取るための構造体
type tripRow struct {
	ID            string
	Days          int
	StartDate     time.Time
	StartLocation string
	EndLocation   sql.NullString
	Lodging       sql.NullString
	DayLimits     sql.NullString
	AllowedModes  sql.NullString
}

// GetTripInput は指定された旅行の最適化入力を読み出す
func (r *PostgresTripsRepository) GetTripInput(ctx context.Context, tripID string) (*model.TripInput, error) {
	query := `SELECT id, days, start_date, start_location, end_location, lodging, day_limits, allowed_modes
		FROM trips WHERE id = $1`

	var row tripRow
	err := r.client.DB.QueryRowContext(ctx, query, tripID).Scan(
		&row.ID, &row.Days, &row.StartDate, &row.StartLocation,
		&row.EndLocation, &row.Lodging, &row.DayLimits, &row.AllowedModes)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("旅行 %s が見つかりません", tripID)
		}
		return nil, fmt.Errorf("旅行データの取得失敗: %w", err)
	}

	trip := &model.TripInput{
		TripID:    row.ID,
		Days:      row.Days,
		StartDate: row.StartDate,
	}

	// 位置情報・付帯情報はJSONBカラムから変換する
	var startGeo model.Geometry
	if err := json.Unmarshal([]byte(row.StartLocation), &startGeo); err != nil {
		return nil, fmt.Errorf("start_location JSONBパースエラー: %w", err)
	}
	start := &model.Location{}
	start.FromGeometry(&startGeo)
	trip.StartLocation = start

	if row.EndLocation.Valid {
		var endGeo model.Geometry
		if err := json.Unmarshal([]byte(row.EndLocation.String), &endGeo); err != nil {
			return nil, fmt.Errorf("end_location JSONBパースエラー: %w", err)
		}
		end := &model.Location{}
		end.FromGeometry(&endGeo)
		trip.EndLocation = end
	}

	if row.Lodging.Valid {
		var lodging model.LodgingInfo
		if err := json.Unmarshal([]byte(row.Lodging.String), &lodging); err != nil {
			return nil, fmt.Errorf("lodging JSONBパースエラー: %w", err)
		}
		trip.Lodging = &lodging
	}

	if row.DayLimits.Valid {
		var limits []model.DayTimeLimit
		if err := json.Unmarshal([]byte(row.DayLimits.String), &limits); err != nil {
			return nil, fmt.Errorf("day_limits JSONBパースエラー: %w", err)
		}
		trip.DayLimits = limits
	}

	if row.AllowedModes.Valid {
		var modes []model.TransportMode
		if err := json.Unmarshal([]byte(row.AllowedModes.String), &modes); err != nil {
			return nil, fmt.Errorf("allowed_modes JSONBパースエラー: %w", err)
		}
		trip.AllowedModes = modes
	}

	waypoints, err := r.getWaypoints(ctx, tripID)
	if err != nil {
		return nil, err
	}
	trip.Waypoints = waypoints

	return trip, nil
}

// waypointRow trip_placesテーブルの1行を受け取るための構造体
type waypointRow struct {
	ID             string
	Name           string
	Location       string
	StayMinutes    int
	IsFixed        bool
	FixedDay       sql.NullInt64
	FixedDate      sql.NullString
	FixedStartTime sql.NullString
	Priority       sql.NullInt64
}

// getWaypoints 旅行に属する訪問候補スポットを入力順で読み出す
func (r *PostgresTripsRepository) getWaypoints(ctx context.Context, tripID string) ([]*model.Waypoint, error) {
	query := `SELECT id, name, location, stay_minutes, is_fixed, fixed_day, fixed_date, fixed_at, priority
		FROM trip_places WHERE trip_id = $1 ORDER BY position ASC`

	rows, err := r.client.DB.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("スポットデータの取得失敗: %w", err)
	}
	defer rows.Close()

	var waypoints []*model.Waypoint
	for rows.Next() {
		var row waypointRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Location, &row.StayMinutes,
			&row.IsFixed, &row.FixedDay, &row.FixedDate, &row.FixedStartTime, &row.Priority); err != nil {
			return nil, fmt.Errorf("スポットデータのスキャン失敗: %w", err)
		}

		var geo model.Geometry
		if err := json.Unmarshal([]byte(row.Location), &geo); err != nil {
			return nil, fmt.Errorf("location JSONBパースエラー: %w", err)
		}
		location := &model.Location{}
		location.FromGeometry(&geo)

		w := &model.Waypoint{
			ID:                  row.ID,
			Name:                row.Name,
			Location:            location,
			StayDurationMinutes: row.StayMinutes,
			IsFixed:             row.IsFixed,
		}
		if row.FixedDay.Valid {
			day := int(row.FixedDay.Int64)
			w.FixedDay = &day
		}
		if row.FixedDate.Valid {
			date := row.FixedDate.String
			w.FixedDate = &date
		}
		if row.FixedStartTime.Valid {
			at := row.FixedStartTime.String
			w.FixedStartTime = &at
		}
		if row.Priority.Valid {
			p := int(row.Priority.Int64)
			w.Priority = &p
		}
		waypoints = append(waypoints, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スポットデータの読み出し失敗: %w", err)
	}

	return waypoints, nil
}
