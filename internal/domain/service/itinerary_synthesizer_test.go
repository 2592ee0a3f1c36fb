package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"TabiPlan-App/internal/domain/model"
)

func TestItinerarySynthesizerResolveAnchors(t *testing.T) {
	synthesizer := NewItinerarySynthesizer()

	trip := newTestTrip(3)
	trip.EndLocation = &model.Location{Latitude: 34.7024, Longitude: 135.4959}
	trip.Lodging = &model.LodgingInfo{
		Name:        "旅館はなび",
		Location:    kyotoLocation(),
		CheckInTime: "15:00",
	}

	t.Run("初日の起点は旅行の出発地点", func(t *testing.T) {
		anchor, id := synthesizer.ResolveDayOrigin(trip, 1, nil)
		assert.Equal(t, model.AnchorTripOrigin, anchor.Kind)
		assert.Equal(t, OriginPointID, id)
	})

	t.Run("2日目以降の起点は前夜の宿", func(t *testing.T) {
		anchor, id := synthesizer.ResolveDayOrigin(trip, 2, nil)
		assert.Equal(t, model.AnchorLodging, anchor.Kind)
		assert.Equal(t, LodgingPointID, id)
	})

	t.Run("宿がない場合は前日の最後のスポットから継続", func(t *testing.T) {
		noLodging := newTestTrip(3)
		prevLast := &model.Waypoint{ID: "last", Name: "昨日の最終スポット", Location: kyotoLocation()}

		anchor, id := synthesizer.ResolveDayOrigin(noLodging, 2, prevLast)
		assert.Equal(t, model.AnchorPreviousLastStop, anchor.Kind)
		assert.Equal(t, "last", id)
	})

	t.Run("最終日の終点は旅行の最終目的地", func(t *testing.T) {
		anchor, id := synthesizer.ResolveDayDestination(trip, 3)
		assert.Equal(t, model.AnchorTripDestination, anchor.Kind)
		assert.Equal(t, DestinationPointID, id)
	})

	t.Run("中日の終点はその日の宿", func(t *testing.T) {
		anchor, id := synthesizer.ResolveDayDestination(trip, 1)
		assert.Equal(t, model.AnchorLodging, anchor.Kind)
		assert.Equal(t, LodgingPointID, id)
	})

	t.Run("宿も目的地もない中日は終点なし", func(t *testing.T) {
		noLodging := newTestTrip(3)
		anchor, id := synthesizer.ResolveDayDestination(noLodging, 2)
		assert.Nil(t, anchor)
		assert.Equal(t, "", id)
	})
}

func TestItinerarySynthesizerSynthesizeDay(t *testing.T) {
	synthesizer := NewItinerarySynthesizer()

	t.Run("基本的な時刻の積み上げ", func(t *testing.T) {
		trip := newTestTrip(1,
			&model.Waypoint{ID: "a", Name: "清水寺", Location: kyotoLocation(), StayDurationMinutes: 60},
			&model.Waypoint{ID: "b", Name: "金閣寺", Location: kyotoLocation(), StayDurationMinutes: 90},
		)
		matrix := buildUniformMatrix([]string{OriginPointID, "a", "b"}, 10)

		itinerary, warnings := synthesizer.SynthesizeDay(SynthesisInput{
			Trip:   trip,
			Plan:   model.DayPlan{Day: 1},
			Order:  []string{"a", "b"},
			Matrix: matrix,
		})
		assert.Empty(t, warnings)
		assert.Equal(t, "10:00", itinerary.StartTime)
		assert.Len(t, itinerary.Items, 2)

		// 10:00発 → 移動10分 → 10:10着/60分滞在/11:10発 → 移動10分 → 11:20着/90分滞在
		assert.Equal(t, "10:10", itinerary.Items[0].ArrivalTime)
		assert.Equal(t, "11:10", itinerary.Items[0].DepartureTime)
		assert.Equal(t, "11:20", itinerary.Items[1].ArrivalTime)
		assert.Equal(t, "12:50", itinerary.Items[1].DepartureTime)
		assert.Equal(t, "12:50", itinerary.EndTime)

		assert.Equal(t, 150, itinerary.TotalStayMinutes)
		assert.Equal(t, 20.0, itinerary.TotalTravelMinutes)
		assert.Equal(t, 2, itinerary.PlaceCount)
		assert.NotNil(t, itinerary.TransportFromOrigin)
		assert.NotNil(t, itinerary.Items[0].TransportToNext)
		assert.Nil(t, itinerary.Items[1].TransportToNext)
	})

	t.Run("固定開始時刻まで待機する", func(t *testing.T) {
		trip := newTestTrip(1,
			&model.Waypoint{ID: "a", Name: "朝の散策", Location: kyotoLocation(), StayDurationMinutes: 60},
			&model.Waypoint{ID: "show", Name: "予約済み公演", Location: kyotoLocation(), StayDurationMinutes: 120,
				IsFixed: true, FixedDay: intPtr(1), FixedStartTime: clockPtr("14:00")},
		)
		matrix := buildUniformMatrix([]string{OriginPointID, "a", "show"}, 10)

		itinerary, warnings := synthesizer.SynthesizeDay(SynthesisInput{
			Trip:   trip,
			Plan:   model.DayPlan{Day: 1},
			Order:  []string{"a", "show"},
			Matrix: matrix,
		})
		assert.Empty(t, warnings)
		// 11:10発 + 移動10分 = 11:20着だが、固定開始の14:00まで待機する
		assert.Equal(t, "14:00", itinerary.Items[1].ArrivalTime)
		assert.Equal(t, "16:00", itinerary.Items[1].DepartureTime)
	})

	t.Run("固定開始に大幅に遅れる場合は警告を出す", func(t *testing.T) {
		trip := newTestTrip(1,
			&model.Waypoint{ID: "a", Name: "長時間の観光", Location: kyotoLocation(), StayDurationMinutes: 300},
			&model.Waypoint{ID: "show", Name: "午前の公演", Location: kyotoLocation(), StayDurationMinutes: 60,
				IsFixed: true, FixedDay: intPtr(1), FixedStartTime: clockPtr("10:30")},
		)
		matrix := buildUniformMatrix([]string{OriginPointID, "a", "show"}, 10)

		_, warnings := synthesizer.SynthesizeDay(SynthesisInput{
			Trip:   trip,
			Plan:   model.DayPlan{Day: 1},
			Order:  []string{"a", "show"},
			Matrix: matrix,
		})
		if assert.Len(t, warnings, 1) {
			assert.Equal(t, model.ErrFixedScheduleConflict, warnings[0].Code)
			assert.Equal(t, "show", warnings[0].PlaceID)
		}
	})

	t.Run("宿チェックインがマークされた位置に挿入される", func(t *testing.T) {
		trip := newTestTrip(2,
			&model.Waypoint{ID: "a", Name: "午前の観光", Location: kyotoLocation(), StayDurationMinutes: 240},
			&model.Waypoint{ID: "b", Name: "夜の散策", Location: kyotoLocation(), StayDurationMinutes: 60},
		)
		trip.Lodging = &model.LodgingInfo{
			Name:        "旅館はなび",
			Location:    kyotoLocation(),
			CheckInTime: "15:00",
		}
		matrix := buildUniformMatrix([]string{OriginPointID, LodgingPointID, "a", "b"}, 10)

		breakIdx := 1
		itinerary, _ := synthesizer.SynthesizeDay(SynthesisInput{
			Trip:   trip,
			Plan:   model.DayPlan{Day: 1, LodgingBreakIndex: &breakIdx},
			Order:  []string{"a", "b"},
			Matrix: matrix,
		})

		if assert.NotNil(t, itinerary.Lodging) {
			assert.Equal(t, "旅館はなび", itinerary.Lodging.Name)
			assert.Equal(t, 1, itinerary.Lodging.AfterOrder)
			// 14:10+移動10分=14:20着だが、チェックイン可能時刻の15:00まで待つ
			assert.Equal(t, "15:00", itinerary.Lodging.CheckInTime)
			assert.NotNil(t, itinerary.Lodging.TransportTo)
			assert.NotNil(t, itinerary.Lodging.TransportFrom)
		}
		// チェックイン30分+宿からの移動10分後に夜の散策へ
		assert.Equal(t, "15:40", itinerary.Items[1].ArrivalTime)
	})

	t.Run("全訪問後のチェックインは終点扱いになる", func(t *testing.T) {
		trip := newTestTrip(2,
			&model.Waypoint{ID: "a", Name: "観光", Location: kyotoLocation(), StayDurationMinutes: 60},
		)
		trip.Lodging = &model.LodgingInfo{
			Name:        "旅館はなび",
			Location:    kyotoLocation(),
			CheckInTime: "15:00",
		}
		matrix := buildUniformMatrix([]string{OriginPointID, LodgingPointID, "a"}, 10)

		breakIdx := 1
		itinerary, _ := synthesizer.SynthesizeDay(SynthesisInput{
			Trip:   trip,
			Plan:   model.DayPlan{Day: 1, LodgingBreakIndex: &breakIdx},
			Order:  []string{"a"},
			Matrix: matrix,
		})

		if assert.NotNil(t, itinerary.Lodging) {
			assert.Nil(t, itinerary.Lodging.TransportFrom)
			assert.Equal(t, "15:00", itinerary.Lodging.CheckInTime)
		}
		// 終点=宿のため、宿への二重移動は付与されない
		assert.Nil(t, itinerary.TransportToDest)
		assert.Equal(t, "15:30", itinerary.EndTime)
	})

	t.Run("訪問のない日は起点から終点への移動のみ", func(t *testing.T) {
		trip := newTestTrip(2)
		trip.Lodging = &model.LodgingInfo{
			Name:        "旅館はなび",
			Location:    kyotoLocation(),
			CheckInTime: "15:00",
		}
		matrix := buildUniformMatrix([]string{OriginPointID, LodgingPointID}, 25)

		itinerary, warnings := synthesizer.SynthesizeDay(SynthesisInput{
			Trip:   trip,
			Plan:   model.DayPlan{Day: 1},
			Matrix: matrix,
		})
		assert.Empty(t, warnings)
		assert.Empty(t, itinerary.Items)
		assert.NotNil(t, itinerary.TransportToDest)
		assert.Equal(t, "10:25", itinerary.EndTime)
	})

	t.Run("公共交通機関の詳細欠落は警告になる", func(t *testing.T) {
		trip := newTestTrip(1,
			&model.Waypoint{ID: "a", Name: "駅前", Location: kyotoLocation(), StayDurationMinutes: 30},
			&model.Waypoint{ID: "b", Name: "郊外", Location: kyotoLocation(), StayDurationMinutes: 30},
		)
		matrix := model.NewDistanceMatrix([]string{OriginPointID, "a", "b"})
		matrix.SetSegment(&model.SegmentCost{FromID: OriginPointID, ToID: "a", Mode: model.ModeWalking, DurationMinutes: 5})
		// 実経路のtransit区間だが内訳がない
		matrix.SetSegment(&model.SegmentCost{FromID: "a", ToID: "b", Mode: model.ModeTransit, DurationMinutes: 20})

		_, warnings := synthesizer.SynthesizeDay(SynthesisInput{
			Trip:   trip,
			Plan:   model.DayPlan{Day: 1},
			Order:  []string{"a", "b"},
			Matrix: matrix,
		})
		if assert.Len(t, warnings, 1) {
			assert.Equal(t, model.ErrTransitDetailsError, warnings[0].Code)
		}
	})
}
