package strategy

import (
	"TabiPlan-App/internal/domain/helper"
	"TabiPlan-App/internal/domain/model"
)

// StraightLineStrategy は直線距離と移動手段ごとの平均速度でコストを推定する戦略
// 徒歩は約4km/h、公共交通機関は約20km/h（待ち時間込み）、車は約30km/h（市街地）を前提とする
type StraightLineStrategy struct {
	mode        model.TransportMode
	speedKmh    float64
	maxAttempts int
}

// NewStraightLineStrategy は指定した移動手段用の新しい戦略インスタンスを作成する
func NewStraightLineStrategy(mode model.TransportMode) *StraightLineStrategy {
	speed, ok := model.FallbackSpeedKmh[mode]
	if !ok {
		speed = model.FallbackSpeedKmh[model.ModeWalking]
	}
	return &StraightLineStrategy{
		mode:        mode,
		speedKmh:    speed,
		maxAttempts: 3, // リトライ上限（レート制限・サーバーエラーのみ対象）
	}
}

// NewDefaultStrategies は全移動手段のデフォルト戦略マップを作成する
func NewDefaultStrategies() map[model.TransportMode]FallbackStrategyInterface {
	strategies := make(map[model.TransportMode]FallbackStrategyInterface)
	for _, mode := range model.GetAllTransportModes() {
		strategies[mode] = NewStraightLineStrategy(mode)
	}
	return strategies
}

// Mode 対象とする移動手段を取得
func (s *StraightLineStrategy) Mode() model.TransportMode {
	return s.mode
}

// MaxAttempts リトライを諦めるまでの最大試行回数
func (s *StraightLineStrategy) MaxAttempts() int {
	return s.maxAttempts
}

// EstimateSegment 直線距離からペアのコストを推定する
func (s *StraightLineStrategy) EstimateSegment(fromID, toID string, from, to model.LatLng) *model.SegmentCost {
	distanceMeters := helper.HaversineDistanceMeters(from, to)
	return &model.SegmentCost{
		FromID:          fromID,
		ToID:            toID,
		Mode:            s.mode,
		DurationMinutes: helper.EstimateTravelMinutes(from, to, s.speedKmh),
		DistanceMeters:  distanceMeters,
		Estimated:       true,
	}
}
