package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"TabiPlan-App/internal/domain/helper"
	"TabiPlan-App/internal/domain/model"
	"TabiPlan-App/internal/domain/repository"
	"TabiPlan-App/internal/domain/service"
)

// fakeDirectionsProvider 直線距離から決定的にコストを返すテスト用プロバイダ
type fakeDirectionsProvider struct {
	speedKmh float64
	failWith *repository.ProviderError
}

func (p *fakeDirectionsProvider) GetSegmentCost(ctx context.Context, fromID, toID string, from, to model.LatLng, mode model.TransportMode) (*model.SegmentCost, error) {
	if p.failWith != nil {
		return nil, p.failWith
	}
	return &model.SegmentCost{
		FromID:          fromID,
		ToID:            toID,
		Mode:            mode,
		DurationMinutes: helper.EstimateTravelMinutes(from, to, p.speedKmh),
		DistanceMeters:  helper.HaversineDistanceMeters(from, to),
	}, nil
}

func newTestUseCase(provider repository.SegmentCostProvider) OptimizeUseCase {
	builder := service.NewMatrixBuilder(map[model.TransportMode]repository.SegmentCostProvider{
		model.ModeWalking: provider,
	}).WithBatchInterval(0)
	return NewOptimizeUseCase(builder)
}

func locPtr(lat, lng float64) *model.Location {
	return &model.Location{Latitude: lat, Longitude: lng}
}

func kyotoDayTrip() *model.TripInput {
	return &model.TripInput{
		TripID:        "trip-kyoto",
		Days:          1,
		StartDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		StartLocation: locPtr(34.9858, 135.7588), // 京都駅
		Waypoints: []*model.Waypoint{
			{ID: "kiyomizu", Name: "清水寺", Location: locPtr(34.9949, 135.7850), StayDurationMinutes: 90},
			{ID: "gion", Name: "祇園", Location: locPtr(35.0037, 135.7788), StayDurationMinutes: 60},
			{ID: "fushimi", Name: "伏見稲荷大社", Location: locPtr(34.9671, 135.7727), StayDurationMinutes: 90},
		},
	}
}

func TestOptimizeUseCaseOptimize(t *testing.T) {
	ctx := context.Background()

	t.Run("京都1日徒歩の基本シナリオ", func(t *testing.T) {
		uc := newTestUseCase(&fakeDirectionsProvider{speedKmh: 4.0})
		result, err := uc.Optimize(ctx, kyotoDayTrip(), nil)

		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "trip-kyoto", result.TripID)
		assert.NotEmpty(t, result.RunID)
		assert.Empty(t, result.Unassigned)
		assert.Len(t, result.Itineraries, 1)

		day := result.Itineraries[0]
		assert.Equal(t, "2026-04-01", day.Date)
		assert.Len(t, day.Items, 3)
		assert.Equal(t, model.AnchorTripOrigin, day.DayOrigin.Kind)

		// 時刻が前の訪問から単調に進んでいる
		prev := -1
		for _, item := range day.Items {
			arrival := helper.ParseClockMinutes(item.ArrivalTime)
			departure := helper.ParseClockMinutes(item.DepartureTime)
			assert.Greater(t, arrival, prev)
			assert.GreaterOrEqual(t, departure, arrival)
			prev = departure
		}

		assert.Equal(t, 3, result.Stats.TotalPlaces)
		assert.Greater(t, result.Stats.TotalTravelMinutes, 0.0)
		assert.Equal(t, 240, result.Stats.TotalStayMinutes)
	})

	t.Run("スポット不足は実行前に中断される", func(t *testing.T) {
		trip := kyotoDayTrip()
		trip.Waypoints = trip.Waypoints[:1]

		uc := newTestUseCase(&fakeDirectionsProvider{speedKmh: 4.0})
		result, err := uc.Optimize(ctx, trip, nil)

		assert.NoError(t, err)
		assert.False(t, result.Success)
		assert.Empty(t, result.Itineraries)
		if assert.Len(t, result.Errors, 1) {
			assert.Equal(t, model.ErrInsufficientPlaces, result.Errors[0].Code)
		}
	})

	t.Run("不正な座標は対象スポット付きで報告される", func(t *testing.T) {
		trip := kyotoDayTrip()
		trip.Waypoints[1].Location = &model.Location{Latitude: 999, Longitude: 135}

		uc := newTestUseCase(&fakeDirectionsProvider{speedKmh: 4.0})
		result, err := uc.Optimize(ctx, trip, nil)

		assert.NoError(t, err)
		assert.False(t, result.Success)
		if assert.Len(t, result.Errors, 1) {
			assert.Equal(t, model.ErrInvalidCoordinates, result.Errors[0].Code)
			assert.Equal(t, "gion", result.Errors[0].PlaceID)
		}
	})

	t.Run("プロバイダ全滅でもフォールバックで完走する", func(t *testing.T) {
		uc := newTestUseCase(&fakeDirectionsProvider{
			failWith: repository.NewProviderError(repository.KindNoRoute, "経路が見つかりません", nil),
		})
		result, err := uc.Optimize(ctx, kyotoDayTrip(), nil)

		assert.NoError(t, err)
		assert.True(t, result.Success, "フォールバックがあるため致命的エラーにはならない")
		assert.Len(t, result.Itineraries, 1)
		assert.NotEmpty(t, result.Errors)

		for _, e := range result.Errors {
			assert.False(t, e.IsFatal())
		}
	})

	t.Run("同一入力に対して同じ行程を返す", func(t *testing.T) {
		uc := newTestUseCase(&fakeDirectionsProvider{speedKmh: 4.0})

		first, err := uc.Optimize(ctx, kyotoDayTrip(), nil)
		assert.NoError(t, err)
		second, err := uc.Optimize(ctx, kyotoDayTrip(), nil)
		assert.NoError(t, err)

		// RunIDと実行時間以外は完全に一致する
		firstJSON, _ := json.Marshal(first.Itineraries)
		secondJSON, _ := json.Marshal(second.Itineraries)
		assert.JSONEq(t, string(firstJSON), string(secondJSON))
		assert.Equal(t, first.Stats.TotalDistanceMeters, second.Stats.TotalDistanceMeters)
		assert.NotEqual(t, first.RunID, second.RunID)
	})

	t.Run("2日間の旅行で宿が日をまたぐ", func(t *testing.T) {
		trip := kyotoDayTrip()
		trip.Days = 2
		trip.Lodging = &model.LodgingInfo{
			Name:        "旅館はなび",
			Location:    locPtr(35.0000, 135.7700),
			CheckInTime: "15:00",
		}
		trip.Waypoints = append(trip.Waypoints,
			&model.Waypoint{ID: "arashiyama", Name: "嵐山", Location: locPtr(35.0094, 135.6668), StayDurationMinutes: 120},
		)

		uc := newTestUseCase(&fakeDirectionsProvider{speedKmh: 4.0})
		result, err := uc.Optimize(ctx, trip, nil)

		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.Len(t, result.Itineraries, 2)

		// 2日目の起点は前夜の宿
		day2 := result.Itineraries[1]
		if assert.NotNil(t, day2.DayOrigin) {
			assert.Equal(t, model.AnchorLodging, day2.DayOrigin.Kind)
		}
	})

	t.Run("旅行データのallowed_modesがデフォルトの移動手段になる", func(t *testing.T) {
		// リクエストでmodesを指定しない場合、保存済みのallowed_modesで行列を構築する
		builder := service.NewMatrixBuilder(map[model.TransportMode]repository.SegmentCostProvider{
			model.ModeWalking: &fakeDirectionsProvider{speedKmh: 4.0},
			model.ModeDriving: &fakeDirectionsProvider{speedKmh: 30.0},
		}).WithBatchInterval(0)
		uc := NewOptimizeUseCase(builder)

		trip := kyotoDayTrip()
		trip.AllowedModes = []model.TransportMode{model.ModeDriving}
		result, err := uc.Optimize(ctx, trip, DefaultOptimizeOptions())

		assert.NoError(t, err)
		assert.True(t, result.Success)
		if assert.Len(t, result.Itineraries, 1) {
			day := result.Itineraries[0]
			if assert.NotNil(t, day.TransportFromOrigin) {
				assert.Equal(t, model.ModeDriving, day.TransportFromOrigin.Mode)
			}
			for _, item := range day.Items {
				if item.TransportToNext != nil {
					assert.Equal(t, model.ModeDriving, item.TransportToNext.Mode)
				}
			}
		}
	})

	t.Run("タイムアウトはTIMEOUTとして報告される", func(t *testing.T) {
		uc := newTestUseCase(&fakeDirectionsProvider{speedKmh: 4.0})

		opts := DefaultOptimizeOptions()
		opts.RunTimeout = time.Nanosecond
		result, err := uc.Optimize(ctx, kyotoDayTrip(), opts)

		assert.NoError(t, err)
		assert.False(t, result.Success)

		foundTimeout := false
		for _, e := range result.Errors {
			if e.Code == model.ErrTimeout {
				foundTimeout = true
			}
		}
		assert.True(t, foundTimeout, "タイムアウトエラーが報告されていない")
	})
}
