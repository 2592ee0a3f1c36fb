package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"TabiPlan-App/internal/domain/model"
	"TabiPlan-App/internal/domain/service"
)

// OptimizeOptions 最適化実行のオプション
type OptimizeOptions struct {
	Modes          []model.TransportMode // 利用可能な移動手段（省略時は旅行データのallowed_modes、それも無ければ徒歩）
	TimeWeight     float64               // コスト関数の時間重み（省略時1.0）
	DistanceWeight float64               // コスト関数の距離重み（省略時0.1）
	MaxIterations  int                   // 2-optの最大反復回数（省略時100）
	RunTimeout     time.Duration         // 実行全体のタイムアウト（省略時120秒）
}

// DefaultOptimizeOptions デフォルトのオプションを作成する
// Modesは空のままにして、旅行データに保存されたallowed_modesを優先する
func DefaultOptimizeOptions() *OptimizeOptions {
	return &OptimizeOptions{
		TimeWeight:     1.0,
		DistanceWeight: 0.1,
		MaxIterations:  100,
		RunTimeout:     120 * time.Second,
	}
}

// OptimizeUseCase は旅行全体の行程最適化のエントリーポイント
type OptimizeUseCase interface {
	// Optimize は行列構築→日程振り分け→訪問順決定→行程合成→統計集計を順に実行し、
	// 常に構造化された結果を返す（致命的エラー時はSuccess=false）
	Optimize(ctx context.Context, trip *model.TripInput, opts *OptimizeOptions) (*model.OptimizeResult, error)
}

// optimizeUseCaseImpl はOptimizeUseCaseの実装
type optimizeUseCaseImpl struct {
	matrixBuilder *service.MatrixBuilder
	distributor   *service.DayDistributor
	synthesizer   *service.ItinerarySynthesizer
}

// NewOptimizeUseCase は新しいOptimizeUseCaseインスタンスを作成する
func NewOptimizeUseCase(matrixBuilder *service.MatrixBuilder) OptimizeUseCase {
	return &optimizeUseCaseImpl{
		matrixBuilder: matrixBuilder,
		distributor:   service.NewDayDistributor(),
		synthesizer:   service.NewItinerarySynthesizer(),
	}
}

// Optimize は旅行全体の行程を最適化する
func (u *optimizeUseCaseImpl) Optimize(ctx context.Context, trip *model.TripInput, opts *OptimizeOptions) (*model.OptimizeResult, error) {
	start := time.Now()
	if opts == nil {
		opts = DefaultOptimizeOptions()
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.RunTimeout)
	defer cancel()

	result := &model.OptimizeResult{
		TripID: trip.TripID,
		RunID:  uuid.New().String(),
	}

	log.Printf("🚀 行程最適化開始 (trip: %s, %d日間, スポット%d件)", trip.TripID, trip.Days, len(trip.Waypoints))

	// Step 0: 入力検証（構造的に不正な入力のみ実行前に中断する）
	if fatal := u.validateInput(trip); fatal != nil {
		result.Errors = append(result.Errors, *fatal)
		result.CompletedAt = time.Now()
		result.Stats.OptimizationMillis = time.Since(start).Milliseconds()
		log.Printf("❌ 入力検証エラー: %v", fatal)
		return result, nil
	}

	// Step 1: 距離・時間行列の構築
	points := u.buildMatrixPoints(trip)
	modes := opts.Modes
	if len(modes) == 0 {
		modes = trip.AllowedModes
	}
	matrix, matrixWarnings, err := u.matrixBuilder.BuildMatrix(ctx, points, modes)
	result.Errors = append(result.Errors, matrixWarnings...)
	if err != nil {
		return u.finishWithPipelineError(result, start, err), nil
	}

	// Step 2: 日程への振り分け
	distribution := u.distributor.Distribute(trip, matrix)
	result.Errors = append(result.Errors, distribution.Errors...)
	result.Unassigned = distribution.Unassigned
	if len(distribution.Unassigned) > 0 {
		limitWarning := model.NewOptimizeError(model.ErrExceedsDailyLimit,
			fmt.Sprintf("%d件のスポットをどの日にも割り当てられませんでした", len(distribution.Unassigned))).
			WithDetail("unassigned_count", len(distribution.Unassigned))
		result.Errors = append(result.Errors, *limitWarning)
	}

	// Step 3-4: 日ごとの訪問順決定と行程合成
	byID := make(map[string]*model.Waypoint, len(trip.Waypoints))
	for _, w := range trip.Waypoints {
		byID[w.ID] = w
	}

	orderer := service.NewRouteOrderer().
		WithWeights(opts.TimeWeight, opts.DistanceWeight).
		WithMaxIterations(opts.MaxIterations)

	var sumInitialCost, sumFinalCost float64
	var prevLast *model.Waypoint
	for _, plan := range distribution.Plans {
		if ctx.Err() != nil {
			return u.finishWithPipelineError(result, start, ctx.Err()), nil
		}

		_, originID := u.synthesizer.ResolveDayOrigin(trip, plan.Day, prevLast)
		_, destID := u.synthesizer.ResolveDayDestination(trip, plan.Day)

		ordered := orderer.OrderRoute(trip, plan, matrix, originID, destID)
		sumInitialCost += ordered.InitialCost
		sumFinalCost += ordered.FinalCost

		itinerary, warnings := u.synthesizer.SynthesizeDay(service.SynthesisInput{
			Trip:         trip,
			Plan:         plan,
			Order:        ordered.Order,
			Matrix:       matrix,
			PrevLastStop: prevLast,
		})
		result.Errors = append(result.Errors, warnings...)
		result.Itineraries = append(result.Itineraries, *itinerary)

		if len(ordered.Order) > 0 {
			prevLast = byID[ordered.Order[len(ordered.Order)-1]]
		}
	}

	// Step 5: 統計の集計
	result.Stats = u.buildStats(result.Itineraries, sumInitialCost, sumFinalCost, start)
	result.CompletedAt = time.Now()
	result.Success = !result.HasFatalError()

	log.Printf("🎉 行程最適化完了: %d日分 %v (改善率 %.1f%%, 警告%d件)",
		len(result.Itineraries), time.Since(start), result.Stats.ImprovementPercent, len(result.Errors))
	return result, nil
}

// validateInput は構造的に不正な入力を検出する（該当すれば行列構築前に中断）
func (u *optimizeUseCaseImpl) validateInput(trip *model.TripInput) *model.OptimizeError {
	if trip.Days < 1 {
		return model.NewOptimizeError(model.ErrInsufficientPlaces, "旅行日数は1日以上である必要があります")
	}
	if !trip.StartLocation.IsValid() {
		return model.NewOptimizeError(model.ErrInvalidCoordinates, "出発地点の座標が不正です")
	}
	if trip.EndLocation != nil && !trip.EndLocation.IsValid() {
		return model.NewOptimizeError(model.ErrInvalidCoordinates, "最終目的地の座標が不正です")
	}
	if trip.Lodging != nil && !trip.Lodging.Location.IsValid() {
		return model.NewOptimizeError(model.ErrInvalidCoordinates, "宿泊施設の座標が不正です")
	}

	usable := 0
	for _, w := range trip.Waypoints {
		if !w.Location.IsValid() {
			return model.NewOptimizeError(model.ErrInvalidCoordinates,
				fmt.Sprintf("スポット「%s」の座標が不正です", w.Name)).WithPlace(w.ID)
		}
		usable++
	}
	if usable < 2 {
		return model.NewOptimizeError(model.ErrInsufficientPlaces,
			fmt.Sprintf("最適化には2件以上のスポットが必要です（現在%d件）", usable))
	}
	return nil
}

// buildMatrixPoints は行列構築の対象地点（全スポット+アンカー）を列挙する
func (u *optimizeUseCaseImpl) buildMatrixPoints(trip *model.TripInput) []service.MatrixPoint {
	points := make([]service.MatrixPoint, 0, len(trip.Waypoints)+3)
	for _, w := range trip.Waypoints {
		points = append(points, service.MatrixPoint{ID: w.ID, Location: w.ToLatLng()})
	}
	points = append(points, service.MatrixPoint{ID: service.OriginPointID, Location: trip.StartLocation.ToLatLng()})
	if trip.EndLocation != nil {
		points = append(points, service.MatrixPoint{ID: service.DestinationPointID, Location: trip.EndLocation.ToLatLng()})
	}
	if trip.Lodging != nil && trip.Lodging.Location != nil {
		points = append(points, service.MatrixPoint{ID: service.LodgingPointID, Location: trip.Lodging.Location.ToLatLng()})
	}
	return points
}

// buildStats は全日程の合計・平均と改善率を集計する
// 改善率は全日の初期コスト合計に対する最終コスト合計の削減割合（コスト加重集計）
func (u *optimizeUseCaseImpl) buildStats(itineraries []model.DailyItinerary, sumInitial, sumFinal float64, start time.Time) model.OptimizeStats {
	stats := model.OptimizeStats{
		OptimizationMillis: time.Since(start).Milliseconds(),
	}
	for i := range itineraries {
		stats.TotalDistanceMeters += itineraries[i].TotalDistanceMeters
		stats.TotalTravelMinutes += itineraries[i].TotalTravelMinutes
		stats.TotalStayMinutes += itineraries[i].TotalStayMinutes
		stats.TotalPlaces += itineraries[i].PlaceCount
	}
	if n := len(itineraries); n > 0 {
		stats.AvgDistancePerDay = stats.TotalDistanceMeters / float64(n)
		stats.AvgTravelMinutesPerDay = stats.TotalTravelMinutes / float64(n)
	}
	if sumInitial > 0 {
		stats.ImprovementPercent = (sumInitial - sumFinal) / sumInitial * 100
	}
	return stats
}

// finishWithPipelineError はパイプライン全体の失敗を結果に記録する
func (u *optimizeUseCaseImpl) finishWithPipelineError(result *model.OptimizeResult, start time.Time, err error) *model.OptimizeResult {
	code := model.ErrUnknown
	message := "最適化パイプラインで予期しないエラーが発生しました"
	if errors.Is(err, context.DeadlineExceeded) {
		code = model.ErrTimeout
		message = "最適化の実行がタイムアウトしました"
	}
	optErr := model.NewOptimizeError(code, message).WithDetail("cause", err.Error())
	result.Errors = append(result.Errors, *optErr)
	result.Success = false
	result.CompletedAt = time.Now()
	result.Stats.OptimizationMillis = time.Since(start).Milliseconds()
	log.Printf("❌ 最適化失敗: %v", err)
	return result
}
