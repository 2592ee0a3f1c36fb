package model

import "fmt"

// OptimizeErrorCode 最適化エラーの分類コード
type OptimizeErrorCode string

// OptimizeErrorCodeConstants 最適化エラーの定数
const (
	ErrInvalidCoordinates    OptimizeErrorCode = "INVALID_COORDINATES"     // 緯度経度が不正（実行前に中断）
	ErrInsufficientPlaces    OptimizeErrorCode = "INSUFFICIENT_PLACES"     // 有効なスポットが2件未満（実行前に中断）
	ErrAPIRateLimit          OptimizeErrorCode = "API_RATE_LIMIT"          // レート制限でリトライ上限到達（フォールバックで継続）
	ErrRouteNotFound         OptimizeErrorCode = "ROUTE_NOT_FOUND"         // 経路が存在しない（フォールバックで継続）
	ErrTimeout               OptimizeErrorCode = "TIMEOUT"                 // 実行全体または個別呼び出しのタイムアウト
	ErrFixedScheduleConflict OptimizeErrorCode = "FIXED_SCHEDULE_CONFLICT" // 固定スケジュール同士の競合（その日のみ失敗）
	ErrExceedsDailyLimit     OptimizeErrorCode = "EXCEEDS_DAILY_LIMIT"     // どの日にも収まらないスポットあり（警告）
	ErrTransitDetailsError   OptimizeErrorCode = "TRANSIT_DETAILS_ERROR"   // 公共交通機関の詳細情報のみ欠落（警告）
	ErrUnknown               OptimizeErrorCode = "UNKNOWN"                 // 予期しないエラー
)

// UnassignedReason スポットが日程に割り当てられなかった理由コード
type UnassignedReason string

// UnassignedReasonConstants 割り当て不可理由の定数
const (
	ReasonTimeExceeded   UnassignedReason = "TIME_EXCEEDED"    // 残り時間に収まらない
	ReasonDistanceTooFar UnassignedReason = "DISTANCE_TOO_FAR" // その日のクラスタから遠すぎる
	ReasonFixedConflict  UnassignedReason = "FIXED_CONFLICT"   // 固定スケジュールと競合
	ReasonNoRoute        UnassignedReason = "NO_ROUTE"         // 経路が見つからない
	ReasonLowPriority    UnassignedReason = "LOW_PRIORITY"     // 優先度が低く枠が埋まった
	ReasonUnknown        UnassignedReason = "UNKNOWN"          // 不明
)

// UnassignedPlaceInfo 割り当てられなかったスポットの診断情報
type UnassignedPlaceInfo struct {
	PlaceID                string           `json:"place_id"`
	PlaceName              string           `json:"place_name"`
	Reason                 UnassignedReason `json:"reason"`
	StayMinutes            int              `json:"stay_minutes"`                       // そのスポットの滞在時間
	EstimatedTravelMinutes float64          `json:"estimated_travel_minutes,omitempty"` // 必要と推定された移動時間
	RemainingMinutes       float64          `json:"remaining_minutes,omitempty"`        // 試行した日の残り時間
	TriedDay               int              `json:"tried_day,omitempty"`                // 試行した日番号
}

// OptimizeError 最適化中に発生したエラー・警告
// 致命的エラーと警告（割り当て不可スポットなど）の両方に使用する
type OptimizeError struct {
	Code    OptimizeErrorCode      `json:"code"`
	Message string                 `json:"message"`
	PlaceID string                 `json:"place_id,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error errorインターフェースの実装
func (e *OptimizeError) Error() string {
	if e.PlaceID != "" {
		return fmt.Sprintf("[%s] %s (place: %s)", e.Code, e.Message, e.PlaceID)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewOptimizeError 新しいOptimizeErrorを作成する
func NewOptimizeError(code OptimizeErrorCode, message string) *OptimizeError {
	return &OptimizeError{Code: code, Message: message}
}

// WithPlace 対象スポットIDを設定する
func (e *OptimizeError) WithPlace(placeID string) *OptimizeError {
	e.PlaceID = placeID
	return e
}

// WithDetail 構造化された詳細情報を追加する
func (e *OptimizeError) WithDetail(key string, value interface{}) *OptimizeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsFatal このエラーが実行全体を失敗させるものかどうか
func (e *OptimizeError) IsFatal() bool {
	switch e.Code {
	case ErrInvalidCoordinates, ErrInsufficientPlaces, ErrUnknown:
		return true
	}
	return false
}
