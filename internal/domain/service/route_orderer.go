package service

import (
	"log"
	"sort"

	"TabiPlan-App/internal/domain/model"
)

// 経路が存在しないペアに与える最大コスト
// 探索は停止しないが、その隣接は強く回避される
const disconnectedPairCost = 1e7

// RouteOrderer は1日分のスポット集合の訪問順を計算するサービス
// 最近傍法で初期解を構築し、2-opt局所探索で改善する
// 固定スケジュールのスポットは相対順序を不変の制約として扱う
type RouteOrderer struct {
	timeWeight     float64 // 所要時間（分）への重み
	distanceWeight float64 // 距離（km）への重み
	maxIterations  int     // 2-optの最大反復回数
}

// NewRouteOrderer はデフォルトの重み（時間優先）で新しいRouteOrdererインスタンスを作成する
func NewRouteOrderer() *RouteOrderer {
	return &RouteOrderer{
		timeWeight:     1.0,
		distanceWeight: 0.1,
		maxIterations:  100,
	}
}

// WithWeights コスト関数の重みを差し替える
func (r *RouteOrderer) WithWeights(timeWeight, distanceWeight float64) *RouteOrderer {
	r.timeWeight = timeWeight
	r.distanceWeight = distanceWeight
	return r
}

// WithMaxIterations 2-optの最大反復回数を差し替える
func (r *RouteOrderer) WithMaxIterations(n int) *RouteOrderer {
	if n > 0 {
		r.maxIterations = n
	}
	return r
}

// OrderedRoute 訪問順の計算結果
type OrderedRoute struct {
	Day                int      `json:"day"`
	Order              []string `json:"order"`               // 訪問順のスポットID
	InitialCost        float64  `json:"initial_cost"`        // 最近傍法による初期解のコスト
	FinalCost          float64  `json:"final_cost"`          // 2-opt改善後のコスト
	Iterations         int      `json:"iterations"`          // 実行した2-opt反復回数
	ImprovementPercent float64  `json:"improvement_percent"` // 初期解に対する改善率
}

// OrderRoute はその日のスポット集合・起点・終点から訪問順を計算する
// endIDが空文字列の場合は終点制約なし（中日で宿がない場合など）
func (r *RouteOrderer) OrderRoute(trip *model.TripInput, plan model.DayPlan, matrix *model.DistanceMatrix, startID, endID string) *OrderedRoute {
	result := &OrderedRoute{Day: plan.Day}

	// スポット0件・1件は自明な順序
	if len(plan.WaypointIDs) <= 1 {
		result.Order = append([]string{}, plan.WaypointIDs...)
		return result
	}

	fixedIDs, freeIDs := r.splitFixedIDs(trip, plan.WaypointIDs)

	// Step 1: 最近傍法による初期解の構築
	// 固定スポットは時刻順の相対スロットを守りつつ、貪欲選択の候補に次の固定スポットのみを含める
	order := r.constructNearestNeighbor(matrix, startID, fixedIDs, freeIDs)
	result.InitialCost = r.routeCost(matrix, startID, order, endID)

	// Step 2: 2-opt局所探索による改善（固定スポットを含む区間は反転しない）
	improved, iterations := r.improveTwoOpt(trip, matrix, startID, order, endID)
	result.Order = improved
	result.Iterations = iterations
	result.FinalCost = r.routeCost(matrix, startID, improved, endID)

	if result.InitialCost > 0 {
		result.ImprovementPercent = (result.InitialCost - result.FinalCost) / result.InitialCost * 100
	}

	log.Printf("🔀 %d日目 訪問順決定: %d箇所 コスト %.1f → %.1f (改善率 %.1f%%, %d反復)",
		plan.Day, len(improved), result.InitialCost, result.FinalCost, result.ImprovementPercent, iterations)
	return result
}

// constructNearestNeighbor は起点から最も近い未訪問スポットを順に選ぶ初期解を構築する
func (r *RouteOrderer) constructNearestNeighbor(matrix *model.DistanceMatrix, startID string, fixedIDs, freeIDs []string) []string {
	order := make([]string, 0, len(fixedIDs)+len(freeIDs))
	visited := make(map[string]bool, len(freeIDs))
	remaining := len(freeIDs)

	current := startID
	nextFixed := 0
	for remaining > 0 || nextFixed < len(fixedIDs) {
		// 候補：全ての未訪問自由スポット + 次の固定スポット（相対順序を守る）
		// 自由スポットは入力順に走査し、コスト同値なら先に入力されたスポットが勝つ
		bestID := ""
		bestCost := 0.0
		for _, id := range freeIDs {
			if visited[id] {
				continue
			}
			cost := r.edgeCost(matrix, current, id)
			if bestID == "" || cost < bestCost {
				bestID = id
				bestCost = cost
			}
		}
		if nextFixed < len(fixedIDs) {
			id := fixedIDs[nextFixed]
			cost := r.edgeCost(matrix, current, id)
			if bestID == "" || cost < bestCost {
				bestID = id
				bestCost = cost
			}
		}
		if bestID == "" {
			break
		}
		order = append(order, bestID)
		current = bestID
		if nextFixed < len(fixedIDs) && bestID == fixedIDs[nextFixed] {
			nextFixed++
		} else {
			visited[bestID] = true
			remaining--
		}
	}
	return order
}

// improveTwoOpt は2-optによる局所探索で訪問順を改善する
// 区間反転は固定スポットを含まない範囲に限定し、改善がないパスで早期終了する
func (r *RouteOrderer) improveTwoOpt(trip *model.TripInput, matrix *model.DistanceMatrix, startID string, order []string, endID string) ([]string, int) {
	best := append([]string{}, order...)
	bestCost := r.routeCost(matrix, startID, best, endID)
	n := len(best)
	if n < 3 {
		return best, 0
	}

	fixedSet := r.fixedIDSet(trip, order)

	iterations := 0
	for iterations < r.maxIterations {
		iterations++
		improvedInPass := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				if r.containsFixed(best[i:k+1], fixedSet) {
					continue
				}
				candidate := twoOptSwap(best, i, k)
				cost := r.routeCost(matrix, startID, candidate, endID)
				if cost < bestCost {
					best = candidate
					bestCost = cost
					improvedInPass = true
				}
			}
		}
		if !improvedInPass {
			break
		}
	}
	return best, iterations
}

// twoOptSwap は区間 [i, k] を反転した新しい順序を返す
func twoOptSwap(order []string, i, k int) []string {
	out := make([]string, len(order))
	copy(out, order[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = order[j]
		pos++
	}
	copy(out[pos:], order[k+1:])
	return out
}

// routeCost は起点→訪問順→終点の総コストを計算する
func (r *RouteOrderer) routeCost(matrix *model.DistanceMatrix, startID string, order []string, endID string) float64 {
	if len(order) == 0 {
		return 0
	}
	total := r.edgeCost(matrix, startID, order[0])
	for i := 0; i < len(order)-1; i++ {
		total += r.edgeCost(matrix, order[i], order[i+1])
	}
	if endID != "" {
		total += r.edgeCost(matrix, order[len(order)-1], endID)
	}
	return total
}

// edgeCost は1区間の重み付きコストを計算する
// cost = timeWeight * 所要分 + distanceWeight * 距離km
func (r *RouteOrderer) edgeCost(matrix *model.DistanceMatrix, fromID, toID string) float64 {
	seg := matrix.Segment(fromID, toID)
	if seg == nil {
		return disconnectedPairCost
	}
	return r.timeWeight*seg.DurationMinutes + r.distanceWeight*seg.DistanceMeters/1000
}

// splitFixedIDs はその日のスポットを固定（時刻順）と自由に分離する
func (r *RouteOrderer) splitFixedIDs(trip *model.TripInput, ids []string) (fixedIDs, freeIDs []string) {
	byID := waypointsByID(trip)
	for _, id := range ids {
		w, ok := byID[id]
		if ok && w.IsFixed && fixedStartMinutes(w) >= 0 {
			fixedIDs = append(fixedIDs, id)
		} else {
			freeIDs = append(freeIDs, id)
		}
	}
	sort.SliceStable(fixedIDs, func(i, j int) bool {
		return fixedStartMinutes(byID[fixedIDs[i]]) < fixedStartMinutes(byID[fixedIDs[j]])
	})
	return fixedIDs, freeIDs
}

// fixedIDSet 固定スポットIDの集合を作成する
func (r *RouteOrderer) fixedIDSet(trip *model.TripInput, ids []string) map[string]bool {
	byID := waypointsByID(trip)
	set := make(map[string]bool)
	for _, id := range ids {
		if w, ok := byID[id]; ok && w.IsFixed && fixedStartMinutes(w) >= 0 {
			set[id] = true
		}
	}
	return set
}

// containsFixed 区間に固定スポットが含まれるかチェック
func (r *RouteOrderer) containsFixed(span []string, fixedSet map[string]bool) bool {
	for _, id := range span {
		if fixedSet[id] {
			return true
		}
	}
	return false
}

// waypointsByID スポットIDからWaypointへのマッピングを作成する
func waypointsByID(trip *model.TripInput) map[string]*model.Waypoint {
	byID := make(map[string]*model.Waypoint, len(trip.Waypoints))
	for _, w := range trip.Waypoints {
		byID[w.ID] = w
	}
	return byID
}
