package repository

import (
	"context"
	"fmt"

	"TabiPlan-App/internal/domain/model"
)

// SegmentCostProvider は、2地点間・1移動手段の経路コストを返す外部コラボレータのインターフェース
// 実装ごとのレート制限・エラー形式の癖はProviderErrorの分類に正規化する
type SegmentCostProvider interface {
	// GetSegmentCost は1ペア・1移動手段の経路コストを取得する
	// 経路が存在しない場合はKindNoRouteのProviderErrorを返す
	GetSegmentCost(ctx context.Context, fromID, toID string, from, to model.LatLng, mode model.TransportMode) (*model.SegmentCost, error)
}

// ProviderErrorKind プロバイダエラーの正規化された分類
type ProviderErrorKind string

// ProviderErrorKindConstants プロバイダエラー分類の定数
const (
	KindRateLimited    ProviderErrorKind = "rate_limited"    // レート制限（リトライ対象）
	KindServerError    ProviderErrorKind = "server_error"    // サーバー側エラー（リトライ対象）
	KindNoRoute        ProviderErrorKind = "no_route"        // 経路が存在しない（リトライ対象外）
	KindInvalidRequest ProviderErrorKind = "invalid_request" // リクエスト不正（リトライ対象外）
	KindTimeout        ProviderErrorKind = "timeout"         // 個別呼び出しのタイムアウト（リトライ対象）
)

// ProviderError は各プロバイダのエラーを単一のretryable/non-retryable分類に正規化したエラー
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
	Cause   error
}

// Error errorインターフェースの実装
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

// Unwrap errors.Is/As対応
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable このエラーがリトライ対象かどうか
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServerError, KindTimeout:
		return true
	}
	return false
}

// NewProviderError 新しいProviderErrorを作成する
func NewProviderError(kind ProviderErrorKind, message string, cause error) *ProviderError {
	return &ProviderError{Kind: kind, Message: message, Cause: cause}
}
