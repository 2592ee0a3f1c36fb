package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"TabiPlan-App/internal/domain/model"
)

// buildLineMatrix は数直線上に並んだ地点から対称な行列を構築する
// 所要時間（分）は座標差、距離は座標差×1kmとする
func buildLineMatrix(positions map[string]float64) *model.DistanceMatrix {
	ids := make([]string, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	matrix := model.NewDistanceMatrix(ids)
	for from, fromPos := range positions {
		for to, toPos := range positions {
			if from == to {
				continue
			}
			diff := fromPos - toPos
			if diff < 0 {
				diff = -diff
			}
			matrix.SetSegment(&model.SegmentCost{
				FromID:          from,
				ToID:            to,
				Mode:            model.ModeWalking,
				DurationMinutes: diff,
				DistanceMeters:  diff * 1000,
			})
		}
	}
	return matrix
}

func clockPtr(s string) *string { return &s }

func TestRouteOrdererOrderRoute(t *testing.T) {
	orderer := NewRouteOrderer()

	t.Run("スポット0件・1件は自明な順序", func(t *testing.T) {
		trip := &model.TripInput{Days: 1}
		matrix := buildLineMatrix(map[string]float64{"s": 0})

		empty := orderer.OrderRoute(trip, model.DayPlan{Day: 1}, matrix, "s", "")
		assert.Empty(t, empty.Order)

		trip.Waypoints = []*model.Waypoint{{ID: "a"}}
		single := orderer.OrderRoute(trip, model.DayPlan{Day: 1, WaypointIDs: []string{"a"}}, matrix, "s", "")
		assert.Equal(t, []string{"a"}, single.Order)
	})

	t.Run("直線配置では近い順に訪問する", func(t *testing.T) {
		trip := &model.TripInput{
			Days: 1,
			Waypoints: []*model.Waypoint{
				{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"},
			},
		}
		matrix := buildLineMatrix(map[string]float64{
			"s": 0, "a": 1, "b": 2, "c": 3, "d": 4,
		})
		plan := model.DayPlan{Day: 1, WaypointIDs: []string{"c", "a", "d", "b"}}

		result := orderer.OrderRoute(trip, plan, matrix, "s", "")
		assert.Equal(t, []string{"a", "b", "c", "d"}, result.Order)
	})

	t.Run("コストが全て同値なら入力順を維持する", func(t *testing.T) {
		// 貪欲選択の同値タイブレークはID辞書順ではなく入力順で解決される
		trip := &model.TripInput{
			Days: 1,
			Waypoints: []*model.Waypoint{
				{ID: "zeta"}, {ID: "mid"}, {ID: "alpha"},
			},
		}
		ids := []string{"s", "zeta", "mid", "alpha"}
		matrix := model.NewDistanceMatrix(ids)
		for _, from := range ids {
			for _, to := range ids {
				if from == to {
					continue
				}
				matrix.SetSegment(&model.SegmentCost{
					FromID:          from,
					ToID:            to,
					Mode:            model.ModeWalking,
					DurationMinutes: 7,
					DistanceMeters:  500,
				})
			}
		}
		plan := model.DayPlan{Day: 1, WaypointIDs: []string{"zeta", "mid", "alpha"}}

		result := orderer.OrderRoute(trip, plan, matrix, "s", "")
		assert.Equal(t, []string{"zeta", "mid", "alpha"}, result.Order)
	})

	t.Run("2-optは初期解を悪化させない", func(t *testing.T) {
		trip := &model.TripInput{
			Days: 1,
			Waypoints: []*model.Waypoint{
				{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"},
			},
		}
		matrix := buildLineMatrix(map[string]float64{
			"s": 5, "a": 1, "b": 9, "c": 2, "d": 8, "e": 4,
		})
		plan := model.DayPlan{Day: 1, WaypointIDs: []string{"a", "b", "c", "d", "e"}}

		result := orderer.OrderRoute(trip, plan, matrix, "s", "")
		assert.LessOrEqual(t, result.FinalCost, result.InitialCost)
		assert.GreaterOrEqual(t, result.ImprovementPercent, 0.0)
		assert.Len(t, result.Order, 5)
	})

	t.Run("固定スポットの相対順序は維持される", func(t *testing.T) {
		trip := &model.TripInput{
			Days: 1,
			Waypoints: []*model.Waypoint{
				{ID: "lunch", IsFixed: true, FixedStartTime: clockPtr("12:00")},
				{ID: "dinner", IsFixed: true, FixedStartTime: clockPtr("18:00")},
				{ID: "a"}, {ID: "b"}, {ID: "c"},
			},
		}
		// dinnerの方が起点に近い配置でも、固定時刻順 lunch → dinner を守る
		matrix := buildLineMatrix(map[string]float64{
			"s": 0, "dinner": 1, "lunch": 10, "a": 2, "b": 3, "c": 4,
		})
		plan := model.DayPlan{Day: 1, WaypointIDs: []string{"a", "lunch", "b", "dinner", "c"}}

		result := orderer.OrderRoute(trip, plan, matrix, "s", "")
		assert.Len(t, result.Order, 5)

		lunchIdx, dinnerIdx := -1, -1
		for i, id := range result.Order {
			switch id {
			case "lunch":
				lunchIdx = i
			case "dinner":
				dinnerIdx = i
			}
		}
		assert.NotEqual(t, -1, lunchIdx)
		assert.NotEqual(t, -1, dinnerIdx)
		assert.Less(t, lunchIdx, dinnerIdx, "固定スケジュールの時刻順が入れ替わっている")
	})

	t.Run("終点制約があると帰路コストも考慮される", func(t *testing.T) {
		trip := &model.TripInput{
			Days: 1,
			Waypoints: []*model.Waypoint{
				{ID: "a"}, {ID: "b"}, {ID: "c"},
			},
		}
		matrix := buildLineMatrix(map[string]float64{
			"s": 0, "a": 1, "b": 2, "c": 3, "goal": 4,
		})
		plan := model.DayPlan{Day: 1, WaypointIDs: []string{"b", "c", "a"}}

		result := orderer.OrderRoute(trip, plan, matrix, "s", "goal")
		// 終点が座標4にあるため、遠ざかってから戻らない順序が最適
		assert.Equal(t, []string{"a", "b", "c"}, result.Order)
	})

	t.Run("同一入力に対して決定的な結果を返す", func(t *testing.T) {
		trip := &model.TripInput{
			Days: 1,
			Waypoints: []*model.Waypoint{
				{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"},
			},
		}
		matrix := buildLineMatrix(map[string]float64{
			"s": 3, "a": 7, "b": 1, "c": 5, "d": 9,
		})
		plan := model.DayPlan{Day: 1, WaypointIDs: []string{"a", "b", "c", "d"}}

		first := orderer.OrderRoute(trip, plan, matrix, "s", "")
		for i := 0; i < 5; i++ {
			again := orderer.OrderRoute(trip, plan, matrix, "s", "")
			assert.Equal(t, first.Order, again.Order, fmt.Sprintf("%d回目の実行で順序が変わった", i+2))
			assert.Equal(t, first.FinalCost, again.FinalCost)
		}
	})
}

func TestRouteOrdererEdgeCost(t *testing.T) {
	orderer := NewRouteOrderer()

	t.Run("未定義ペアには到達不能コストを与える", func(t *testing.T) {
		matrix := model.NewDistanceMatrix([]string{"a", "b"})
		cost := orderer.edgeCost(matrix, "a", "b")
		assert.Equal(t, float64(disconnectedPairCost), cost)
	})

	t.Run("コストは時間と距離の重み付き和", func(t *testing.T) {
		matrix := model.NewDistanceMatrix([]string{"a", "b"})
		matrix.SetSegment(&model.SegmentCost{
			FromID:          "a",
			ToID:            "b",
			Mode:            model.ModeWalking,
			DurationMinutes: 10,
			DistanceMeters:  2000,
		})
		// timeWeight=1.0, distanceWeight=0.1: 10 + 0.1*2 = 10.2
		assert.InDelta(t, 10.2, orderer.edgeCost(matrix, "a", "b"), 1e-9)
	})
}
