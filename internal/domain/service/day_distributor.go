package service

import (
	"log"
	"sort"

	"TabiPlan-App/internal/domain/helper"
	"TabiPlan-App/internal/domain/model"
)

// DayDistributor は訪問候補スポットを各日の時間制約のもとで日程に振り分けるサービス
// 固定スケジュールのスポットを先に固定し、残りを日ごとの重心への近さで貪欲に割り当てる
type DayDistributor struct {
	maxClusterRadiusKm float64 // 日の重心からこの距離を超えるスポットは割り当て対象外
}

// NewDayDistributor は新しいDayDistributorインスタンスを作成する
func NewDayDistributor() *DayDistributor {
	return &DayDistributor{
		maxClusterRadiusKm: 50.0,
	}
}

// DistributionResult 日程振り分けの結果
type DistributionResult struct {
	Plans      []model.DayPlan             // 日ごとの訪問計画（この段階では未順序）
	Clusters   []model.Cluster             // 日ごとのクラスタ（重心付き）
	Unassigned []model.UnassignedPlaceInfo // 割り当てられなかったスポットと理由
	Errors     []model.OptimizeError       // 固定スケジュール競合など
}

// dayState 振り分け処理中の1日分の状態
type dayState struct {
	day              int
	budgetMinutes    float64 // その日の滞在+移動の上限
	remainingMinutes float64
	waypoints        []*model.Waypoint
	centroid         model.LatLng
	hasCentroid      bool
}

// Distribute は全スポットをいずれかの日に割り当てる（または理由付きで未割り当てとして報告する）
func (d *DayDistributor) Distribute(trip *model.TripInput, matrix *model.DistanceMatrix) *DistributionResult {
	result := &DistributionResult{}

	days := make([]*dayState, trip.Days)
	for i := range days {
		day := i + 1
		days[i] = &dayState{
			day:           day,
			budgetMinutes: d.budgetForDay(trip, day),
		}
		days[i].remainingMinutes = days[i].budgetMinutes
		// 重心の初期値：宿泊施設があればその位置、初日は出発地点
		if lodging := trip.LodgingForDay(day); lodging != nil {
			days[i].centroid = lodging.Location.ToLatLng()
			days[i].hasCentroid = true
		} else if day == 1 && trip.StartLocation != nil {
			days[i].centroid = trip.StartLocation.ToLatLng()
			days[i].hasCentroid = true
		}
	}

	// Step 1: 固定スケジュールのスポットを該当日に固定する
	fixed, free := d.splitFixed(trip)
	log.Printf("📅 日程振り分け開始: %d日間 固定:%d件 自由:%d件", trip.Days, len(fixed), len(free))

	fixedByDay := make(map[int][]*model.Waypoint)
	for _, w := range fixed {
		day := w.ResolveFixedDay(trip.StartDate)
		if day < 1 || day > trip.Days {
			result.Unassigned = append(result.Unassigned, model.UnassignedPlaceInfo{
				PlaceID:     w.ID,
				PlaceName:   w.Name,
				Reason:      model.ReasonFixedConflict,
				StayMinutes: stayMinutes(w),
				TriedDay:    day,
			})
			continue
		}
		fixedByDay[day] = append(fixedByDay[day], w)
	}

	for day := 1; day <= trip.Days; day++ {
		group, ok := fixedByDay[day]
		if !ok {
			continue
		}
		// 固定開始時刻順に並べて、連続して成立するかを検証する
		sort.SliceStable(group, func(i, j int) bool {
			return fixedStartMinutes(group[i]) < fixedStartMinutes(group[j])
		})
		kept, conflicted := d.checkFixedFeasibility(group, matrix)
		if len(conflicted) > 0 {
			conflictErr := model.NewOptimizeError(model.ErrFixedScheduleConflict,
				"同じ日の固定スケジュール同士が両立できません").
				WithDetail("day", day)
			for _, w := range conflicted {
				conflictErr.WithDetail("conflicted_place", w.ID)
				result.Unassigned = append(result.Unassigned, model.UnassignedPlaceInfo{
					PlaceID:     w.ID,
					PlaceName:   w.Name,
					Reason:      model.ReasonFixedConflict,
					StayMinutes: stayMinutes(w),
					TriedDay:    day,
				})
			}
			result.Errors = append(result.Errors, *conflictErr)
			log.Printf("⚠️  %d日目: 固定スケジュール競合 %d件", day, len(conflicted))
		}

		state := days[day-1]
		for _, w := range kept {
			travel := d.estimateInboundMinutes(state, w, matrix)
			state.waypoints = append(state.waypoints, w)
			state.remainingMinutes -= float64(stayMinutes(w)) + travel
			d.updateCentroid(state)
		}
	}

	// Step 2: 自由なスポットを優先度→入力順で貪欲に割り当てる
	sort.SliceStable(free, func(i, j int) bool {
		return free[i].PriorityValue() < free[j].PriorityValue()
	})

	for _, w := range free {
		if _, ok := matrix.IndexOf(w.ID); !ok {
			result.Unassigned = append(result.Unassigned, model.UnassignedPlaceInfo{
				PlaceID:     w.ID,
				PlaceName:   w.Name,
				Reason:      model.ReasonNoRoute,
				StayMinutes: stayMinutes(w),
			})
			continue
		}
		d.assignFreeWaypoint(w, days, matrix, result)
	}

	// Step 3: DayPlanとClusterに変換し、宿チェックイン位置をマークする
	for _, state := range days {
		ids := make([]string, len(state.waypoints))
		for i, w := range state.waypoints {
			ids[i] = w.ID
		}
		plan := model.DayPlan{Day: state.day, WaypointIDs: ids}
		if lodging := trip.LodgingForDay(state.day); lodging != nil && len(ids) > 0 {
			idx := d.lodgingBreakIndex(trip, state, lodging)
			plan.LodgingBreakIndex = &idx
		}
		result.Plans = append(result.Plans, plan)
		result.Clusters = append(result.Clusters, model.Cluster{
			Day:         state.day,
			WaypointIDs: ids,
			Centroid:    state.centroid,
		})
	}

	log.Printf("✅ 日程振り分け完了: 割り当て%d件 未割り当て%d件",
		len(trip.Waypoints)-len(result.Unassigned), len(result.Unassigned))
	return result
}

// assignFreeWaypoint は1スポットを最適な日に割り当てる（収まらなければ理由付きで未割り当て）
func (d *DayDistributor) assignFreeWaypoint(w *model.Waypoint, days []*dayState, matrix *model.DistanceMatrix, result *DistributionResult) {
	stay := float64(stayMinutes(w))

	bestIdx := -1
	bestDistance := 0.0
	var bestTravel float64
	// 診断情報用に最も余裕のあった日を記録する
	var triedDay int
	var triedRemaining, triedTravel float64
	wouldFitFullBudget := false

	for i, state := range days {
		travel := d.estimateInboundMinutes(state, w, matrix)
		if stay+travel <= state.budgetMinutes {
			wouldFitFullBudget = true
		}
		if state.remainingMinutes > triedRemaining || triedDay == 0 {
			triedDay = state.day
			triedRemaining = state.remainingMinutes
			triedTravel = travel
		}
		if stay+travel > state.remainingMinutes {
			continue
		}
		distance := d.centroidDistanceKm(state, w)
		if distance > d.maxClusterRadiusKm {
			continue
		}
		if bestIdx == -1 || distance < bestDistance {
			bestIdx = i
			bestDistance = distance
			bestTravel = travel
		}
	}

	if bestIdx == -1 {
		reason := model.ReasonTimeExceeded
		if !d.anyDayWithinRadius(w, days) {
			reason = model.ReasonDistanceTooFar
		} else if wouldFitFullBudget {
			// 満額の予算なら収まるが、先に割り当てられたスポットで枠が埋まった
			reason = model.ReasonLowPriority
		}
		result.Unassigned = append(result.Unassigned, model.UnassignedPlaceInfo{
			PlaceID:                w.ID,
			PlaceName:              w.Name,
			Reason:                 reason,
			StayMinutes:            stayMinutes(w),
			EstimatedTravelMinutes: triedTravel,
			RemainingMinutes:       triedRemaining,
			TriedDay:               triedDay,
		})
		return
	}

	state := days[bestIdx]
	state.waypoints = append(state.waypoints, w)
	state.remainingMinutes -= stay + bestTravel
	d.updateCentroid(state)
}

// checkFixedFeasibility は同日の固定スポット列が時間的に両立するかを検証する
// 両立しないスポットは後勝ちではなく先着優先で落とす
func (d *DayDistributor) checkFixedFeasibility(group []*model.Waypoint, matrix *model.DistanceMatrix) (kept, conflicted []*model.Waypoint) {
	for _, w := range group {
		if len(kept) == 0 {
			kept = append(kept, w)
			continue
		}
		prev := kept[len(kept)-1]
		travel, _ := matrix.Duration(prev.ID, w.ID)
		prevEnd := float64(fixedStartMinutes(prev) + stayMinutes(prev))
		// 前の固定スポットの終了+移動時間で次の固定開始に間に合うか
		if prevEnd+travel > float64(fixedStartMinutes(w)+model.FixedArrivalSlackMinutes) {
			conflicted = append(conflicted, w)
			continue
		}
		kept = append(kept, w)
	}
	return kept, conflicted
}

// budgetForDay その日の滞在+移動の上限（分）を決定する
// 初日・最終日は出発地/目的地への移動区間を抱えるため、デフォルトでは短めになる
func (d *DayDistributor) budgetForDay(trip *model.TripInput, day int) float64 {
	if limit := trip.LimitForDay(day); limit != nil {
		budget := float64(limit.MaxMinutes)
		startMin := helper.ParseClockMinutes(limit.StartTime)
		endMin := helper.ParseClockMinutes(limit.EndTime)
		if startMin >= 0 && endMin > startMin {
			window := float64(endMin - startMin)
			if budget <= 0 || window < budget {
				budget = window
			}
		}
		if budget > 0 {
			return budget
		}
	}
	if day == 1 || day == trip.Days {
		return model.FirstLastDayMaxMinutes
	}
	return model.DefaultDayMaxMinutes
}

// estimateInboundMinutes そのスポットを日に追加した場合の流入移動時間を推定する
// クラスタ内の最も近いスポットからの実経路所要時間を使い、空の日には重心からの直線推定を使う
func (d *DayDistributor) estimateInboundMinutes(state *dayState, w *model.Waypoint, matrix *model.DistanceMatrix) float64 {
	if len(state.waypoints) > 0 {
		best := -1.0
		for _, member := range state.waypoints {
			if duration, ok := matrix.Duration(member.ID, w.ID); ok {
				if best < 0 || duration < best {
					best = duration
				}
			}
		}
		if best >= 0 {
			return best
		}
	}
	if state.hasCentroid {
		return helper.EstimateTravelMinutes(state.centroid, w.ToLatLng(), model.FallbackSpeedKmh[model.ModeWalking])
	}
	return 0
}

// centroidDistanceKm 日の重心からスポットまでの直線距離 (km)
// 重心が未確定の日はどのスポットも受け入れ可能として距離0を返す
func (d *DayDistributor) centroidDistanceKm(state *dayState, w *model.Waypoint) float64 {
	if !state.hasCentroid {
		return 0
	}
	return helper.HaversineDistance(state.centroid, w.ToLatLng())
}

// anyDayWithinRadius いずれかの日のクラスタ半径内に収まるかチェック
func (d *DayDistributor) anyDayWithinRadius(w *model.Waypoint, days []*dayState) bool {
	for _, state := range days {
		if d.centroidDistanceKm(state, w) <= d.maxClusterRadiusKm {
			return true
		}
	}
	return false
}

// updateCentroid 日のクラスタ重心を再計算する
func (d *DayDistributor) updateCentroid(state *dayState) {
	if len(state.waypoints) == 0 {
		return
	}
	state.centroid = helper.Centroid(state.waypoints)
	state.hasCentroid = true
}

// lodgingBreakIndex 宿チェックインを挿入する位置を推定する
// 日の開始時刻から滞在時間を積み上げ、チェックイン時刻に達する位置を返す
// （順序確定前の近似であり、最終的な時刻合わせはSynthesizerが行う）
func (d *DayDistributor) lodgingBreakIndex(trip *model.TripInput, state *dayState, lodging *model.LodgingInfo) int {
	checkIn := helper.ParseClockMinutes(lodging.CheckInTime)
	if checkIn < 0 {
		return len(state.waypoints)
	}
	start := helper.ParseClockMinutes(model.DefaultDayStartTime)
	if limit := trip.LimitForDay(state.day); limit != nil {
		if v := helper.ParseClockMinutes(limit.StartTime); v >= 0 {
			start = v
		}
	}
	elapsed := start
	for i, w := range state.waypoints {
		if elapsed >= checkIn {
			return i
		}
		elapsed += stayMinutes(w)
	}
	return len(state.waypoints)
}

// splitFixed スポットを固定スケジュールありとなしに分離する
func (d *DayDistributor) splitFixed(trip *model.TripInput) (fixed, free []*model.Waypoint) {
	for _, w := range trip.Waypoints {
		if w.IsFixed && fixedStartMinutes(w) >= 0 {
			fixed = append(fixed, w)
		} else {
			free = append(free, w)
		}
	}
	return fixed, free
}

// stayMinutes スポットの滞在時間（分）を取得する（未設定はデフォルト値）
func stayMinutes(w *model.Waypoint) int {
	if w.StayDurationMinutes > 0 {
		return w.StayDurationMinutes
	}
	return model.DefaultStayMinutes
}

// fixedStartMinutes 固定開始時刻を0時からの経過分で取得する（未設定・不正は-1）
func fixedStartMinutes(w *model.Waypoint) int {
	if w.FixedStartTime == nil {
		return -1
	}
	return helper.ParseClockMinutes(*w.FixedStartTime)
}
