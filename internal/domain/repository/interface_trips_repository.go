package repository

import (
	"context"

	"TabiPlan-App/internal/domain/model"
)

// TripsRepository は、旅行・スポット・固定スケジュールを組み立て済みのTripInputとして
// 読み出す永続化コラボレータのインターフェース
type TripsRepository interface {
	// GetTripInput は指定された旅行の最適化入力を読み出す
	GetTripInput(ctx context.Context, tripID string) (*model.TripInput, error)
}
