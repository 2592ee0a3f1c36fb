package strategy

import (
	"TabiPlan-App/internal/domain/model"
)

// FallbackStrategyInterface は、経路プロバイダから結果が得られなかったペアの
// コストを推定する戦略のインターフェース
// リトライ上限・フォールバックの閾値を行列構築のインライン条件分岐から分離する
type FallbackStrategyInterface interface {
	// 対象とする移動手段を取得
	Mode() model.TransportMode

	// 直線距離からペアのコストを推定する
	// 返されるSegmentCostはEstimated=trueでマークされる
	EstimateSegment(fromID, toID string, from, to model.LatLng) *model.SegmentCost

	// リトライを諦めてフォールバックに切り替えるまでの最大試行回数
	MaxAttempts() int
}
