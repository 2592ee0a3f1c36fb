package service

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"TabiPlan-App/internal/domain/model"
	"TabiPlan-App/internal/domain/repository"
	"TabiPlan-App/internal/domain/strategy"
)

// 日の起点・終点を行列上で扱うための予約ID
const (
	OriginPointID      = "__origin__"
	DestinationPointID = "__destination__"
	LodgingPointID     = "__lodging__"
)

// MatrixPoint 行列構築の対象となる1地点（スポットまたはアンカー）
type MatrixPoint struct {
	ID       string
	Location model.LatLng
}

// MatrixBuilder は全地点ペア×移動手段の経路コストを収集して距離・時間行列を構築するサービス
// 外部プロバイダへの呼び出しは固定幅のバッチで並行実行し、バッチ間に待機を挟んでレート制限を尊重する
type MatrixBuilder struct {
	providers     map[model.TransportMode]repository.SegmentCostProvider
	strategies    map[model.TransportMode]strategy.FallbackStrategyInterface
	batchSize     int           // 同時実行数（バッチ幅）
	batchInterval time.Duration // バッチ間の待機時間
	backoffBase   time.Duration // リトライの初期待機時間
	backoffMax    time.Duration // リトライ待機時間の上限
}

// NewMatrixBuilder は新しいMatrixBuilderインスタンスを作成する
func NewMatrixBuilder(providers map[model.TransportMode]repository.SegmentCostProvider) *MatrixBuilder {
	return &MatrixBuilder{
		providers:     providers,
		strategies:    strategy.NewDefaultStrategies(),
		batchSize:     5, // 同時実行数を制限
		batchInterval: 200 * time.Millisecond,
		backoffBase:   500 * time.Millisecond,
		backoffMax:    5 * time.Second,
	}
}

// WithStrategies フォールバック戦略を差し替える（テスト・チューニング用）
func (b *MatrixBuilder) WithStrategies(strategies map[model.TransportMode]strategy.FallbackStrategyInterface) *MatrixBuilder {
	b.strategies = strategies
	return b
}

// WithBatchInterval バッチ間の待機時間を差し替える（テスト用）
func (b *MatrixBuilder) WithBatchInterval(d time.Duration) *MatrixBuilder {
	b.batchInterval = d
	return b
}

// pairTask 1ペア×1移動手段の取得タスク
type pairTask struct {
	from MatrixPoint
	to   MatrixPoint
	mode model.TransportMode
}

// pairResult 取得タスクの結果
type pairResult struct {
	task    pairTask
	segment *model.SegmentCost
	warning *model.OptimizeError
}

// BuildMatrix は全地点の順序付きペア×許可された移動手段のコストを収集して行列を構築する
// 取得に失敗したペアは直線距離フォールバックで必ず埋められるため、
// 返される行列の所要時間は全ペアで定義されていることが保証される
func (b *MatrixBuilder) BuildMatrix(ctx context.Context, points []MatrixPoint, modes []model.TransportMode) (*model.DistanceMatrix, []model.OptimizeError, error) {
	if len(points) < 2 {
		return nil, nil, errors.New("行列構築には2地点以上が必要です")
	}
	if len(modes) == 0 {
		modes = []model.TransportMode{model.ModeWalking}
	}

	ids := make([]string, len(points))
	locations := make(map[string]model.LatLng, len(points))
	for i, p := range points {
		ids[i] = p.ID
		locations[p.ID] = p.Location
	}
	matrix := model.NewDistanceMatrix(ids)

	// 全順序付きペア×移動手段のタスクを列挙
	// 実経路は非対称になりうるため、(a,b)と(b,a)は別タスクとして扱う
	var tasks []pairTask
	for _, from := range points {
		for _, to := range points {
			if from.ID == to.ID {
				continue
			}
			for _, mode := range modes {
				tasks = append(tasks, pairTask{from: from, to: to, mode: mode})
			}
		}
	}

	log.Printf("🚀 距離行列構築開始: %d地点 %dペアタスク (バッチ幅:%d)", len(points), len(tasks), b.batchSize)
	start := time.Now()

	var warnings []model.OptimizeError
	estimatedCount := 0
	// 各ペアについて許可モードの中で最短所要時間のものを採用する
	best := make(map[[2]string]*model.SegmentCost, len(tasks))

	// 固定幅バッチで並行実行し、バッチ間に待機を挟む
	for offset := 0; offset < len(tasks); offset += b.batchSize {
		end := offset + b.batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		batch := tasks[offset:end]

		results := make(chan pairResult, len(batch))
		var wg sync.WaitGroup
		for _, task := range batch {
			wg.Add(1)
			go func(t pairTask) {
				defer wg.Done()
				results <- b.fetchSegment(ctx, t)
			}(task)
		}
		wg.Wait()
		close(results)

		for result := range results {
			if result.warning != nil {
				warnings = append(warnings, *result.warning)
			}
			seg := result.segment
			if seg.Estimated {
				estimatedCount++
			}
			key := [2]string{seg.FromID, seg.ToID}
			if current, ok := best[key]; !ok || seg.DurationMinutes < current.DurationMinutes {
				best[key] = seg
			}
		}

		// レート制限尊重のためのバッチ間待機（最終バッチの後は不要）
		if end < len(tasks) && b.batchInterval > 0 {
			select {
			case <-ctx.Done():
				return nil, warnings, ctx.Err()
			case <-time.After(b.batchInterval):
			}
		}
	}

	for _, seg := range best {
		matrix.SetSegment(seg)
	}

	log.Printf("✅ 距離行列構築完了: %v (実経路:%d, フォールバック:%d, 警告:%d)",
		time.Since(start), len(tasks)-estimatedCount, estimatedCount, len(warnings))
	return matrix, warnings, nil
}

// fetchSegment は1タスクをリトライポリシー付きで実行する
// リトライ上限到達・経路なしの場合は直線距離フォールバックに切り替え、警告を記録する
func (b *MatrixBuilder) fetchSegment(ctx context.Context, t pairTask) pairResult {
	fromLL := t.from.Location
	toLL := t.to.Location
	fallback := b.strategyFor(t.mode)

	provider, ok := b.providers[t.mode]
	if !ok {
		// プロバイダ未登録の移動手段は常にフォールバック
		return pairResult{task: t, segment: fallback.EstimateSegment(t.from.ID, t.to.ID, fromLL, toLL)}
	}

	var lastErr error
	maxAttempts := fallback.MaxAttempts()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			// 指数バックオフ+ジッター（上限付き）
			delay := b.backoffBase * time.Duration(1<<uint(attempt-1))
			if delay > b.backoffMax {
				delay = b.backoffMax
			}
			delay += time.Duration(rand.Int63n(int64(b.backoffBase) / 2))
			select {
			case <-ctx.Done():
				lastErr = repository.NewProviderError(repository.KindTimeout, "コンテキストがキャンセルされました", ctx.Err())
				return pairResult{
					task:    t,
					segment: fallback.EstimateSegment(t.from.ID, t.to.ID, fromLL, toLL),
					warning: b.warningFor(t, lastErr),
				}
			case <-time.After(delay):
			}
		}

		seg, err := provider.GetSegmentCost(ctx, t.from.ID, t.to.ID, fromLL, toLL, t.mode)
		if err == nil {
			return pairResult{task: t, segment: seg}
		}
		lastErr = err

		var provErr *repository.ProviderError
		if errors.As(err, &provErr) && !provErr.Retryable() {
			// 経路なし・リクエスト不正はリトライしない
			break
		}
	}

	// リトライ上限到達または回復不能エラー：フォールバックで継続
	return pairResult{
		task:    t,
		segment: fallback.EstimateSegment(t.from.ID, t.to.ID, fromLL, toLL),
		warning: b.warningFor(t, lastErr),
	}
}

// strategyFor 移動手段に対応するフォールバック戦略を取得する
func (b *MatrixBuilder) strategyFor(mode model.TransportMode) strategy.FallbackStrategyInterface {
	if s, ok := b.strategies[mode]; ok {
		return s
	}
	return strategy.NewStraightLineStrategy(mode)
}

// warningFor プロバイダエラーを最適化エラー分類に正規化して警告を作成する
func (b *MatrixBuilder) warningFor(t pairTask, err error) *model.OptimizeError {
	code := model.ErrRouteNotFound
	message := "経路情報の取得に失敗したため直線距離で推定しました"

	var provErr *repository.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Kind {
		case repository.KindRateLimited:
			code = model.ErrAPIRateLimit
			message = "レート制限によりリトライ上限に達したため直線距離で推定しました"
		case repository.KindTimeout:
			code = model.ErrTimeout
			message = "経路取得がタイムアウトしたため直線距離で推定しました"
		case repository.KindNoRoute:
			code = model.ErrRouteNotFound
			message = "経路が見つからなかったため直線距離で推定しました"
		}
	}

	warning := model.NewOptimizeError(code, message).
		WithDetail("from_id", t.from.ID).
		WithDetail("to_id", t.to.ID).
		WithDetail("mode", string(t.mode))
	if err != nil {
		warning.WithDetail("cause", err.Error())
	}
	return warning
}
