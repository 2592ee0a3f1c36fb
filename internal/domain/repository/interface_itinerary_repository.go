package repository

import (
	"context"

	"TabiPlan-App/internal/domain/model"
)

// ItineraryRepository は、最適化結果の行程を保存・取得する永続化コラボレータのインターフェース
// 再最適化時は同じ旅行IDに対して冪等に上書きされる
type ItineraryRepository interface {
	// SaveItineraries は最適化結果の全日程を保存する（既存の行程は置き換え）
	SaveItineraries(ctx context.Context, result *model.OptimizeResult) error

	// GetItineraries は指定された旅行の行程を日番号順に取得する
	GetItineraries(ctx context.Context, tripID string) ([]model.DailyItinerary, error)

	// UpdateStatus は旅行の行程状態を更新する
	UpdateStatus(ctx context.Context, tripID string, status model.ItineraryStatus) error

	// GetStatus は旅行の行程状態を取得する
	GetStatus(ctx context.Context, tripID string) (model.ItineraryStatus, error)
}
