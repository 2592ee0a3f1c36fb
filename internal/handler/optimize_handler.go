package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"TabiPlan-App/internal/domain/model"
	"TabiPlan-App/internal/domain/repository"
	"TabiPlan-App/internal/usecase"
)

// OptimizeHandler は行程最適化APIのハンドラー
type OptimizeHandler struct {
	optimizeUseCase usecase.OptimizeUseCase
	tripsRepo       repository.TripsRepository
	itineraryRepo   repository.ItineraryRepository
}

// NewOptimizeHandler は新しいOptimizeHandlerインスタンスを作成
func NewOptimizeHandler(optimizeUseCase usecase.OptimizeUseCase, tripsRepo repository.TripsRepository, itineraryRepo repository.ItineraryRepository) *OptimizeHandler {
	return &OptimizeHandler{
		optimizeUseCase: optimizeUseCase,
		tripsRepo:       tripsRepo,
		itineraryRepo:   itineraryRepo,
	}
}

// OptimizeRequest は最適化リクエストのオプション部分
type OptimizeRequest struct {
	Modes          []model.TransportMode `json:"modes,omitempty"`
	TimeWeight     *float64              `json:"time_weight,omitempty"`
	DistanceWeight *float64              `json:"distance_weight,omitempty"`
	MaxIterations  *int                  `json:"max_iterations,omitempty"`
}

// PostOptimize は旅行の行程最適化を実行するエンドポイント
// POST /trips/:id/optimize
func (h *OptimizeHandler) PostOptimize(c *gin.Context) {
	tripID := c.Param("id")
	if tripID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "trip_idが指定されていません",
		})
		return
	}

	var req OptimizeRequest
	// ボディは省略可能（省略時はデフォルトオプションで実行）
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "リクエストの形式が正しくありません",
				"details": err.Error(),
			})
			return
		}
	}

	if err := h.validateRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "バリデーションエラー",
			"details": err.Error(),
		})
		return
	}

	// 旅行データの読み出し
	trip, err := h.tripsRepo.GetTripInput(c.Request.Context(), tripID)
	if err != nil {
		if strings.Contains(err.Error(), "見つかりません") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "旅行が見つかりません",
				"details": err.Error(),
			})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "旅行データの取得に失敗しました",
				"details": err.Error(),
			})
		}
		return
	}

	// 最適化中の状態に遷移（失敗してもログのみで続行）
	if err := h.itineraryRepo.UpdateStatus(c.Request.Context(), tripID, model.StatusOptimizing); err != nil {
		log.Printf("⚠️ ステータス更新に失敗: trip=%s %v", tripID, err)
	}

	opts := h.buildOptions(&req)
	result, err := h.optimizeUseCase.Optimize(c.Request.Context(), trip, opts)
	if err != nil {
		h.revertStatus(c, tripID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "行程最適化の実行に失敗しました",
			"details": err.Error(),
		})
		return
	}

	if !result.Success {
		// 致命的エラー（入力不正など）は422で結果をそのまま返す
		h.revertStatus(c, tripID)
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	// 行程の永続化
	if err := h.itineraryRepo.SaveItineraries(c.Request.Context(), result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "行程の保存に失敗しました",
			"details": err.Error(),
		})
		return
	}
	if err := h.itineraryRepo.UpdateStatus(c.Request.Context(), tripID, model.StatusOptimized); err != nil {
		log.Printf("⚠️ ステータス更新に失敗: trip=%s %v", tripID, err)
	}

	c.JSON(http.StatusOK, result)
}

// validateRequest はリクエストの詳細バリデーションを行う
func (h *OptimizeHandler) validateRequest(req *OptimizeRequest) error {
	for _, mode := range req.Modes {
		if mode != model.ModeWalking && mode != model.ModeTransit && mode != model.ModeDriving {
			return &ValidationError{Field: "modes", Message: "modesは'walking'、'transit'、'driving'のいずれかを指定してください"}
		}
	}
	if req.TimeWeight != nil && *req.TimeWeight < 0 {
		return &ValidationError{Field: "time_weight", Message: "time_weightは0以上で指定してください"}
	}
	if req.DistanceWeight != nil && *req.DistanceWeight < 0 {
		return &ValidationError{Field: "distance_weight", Message: "distance_weightは0以上で指定してください"}
	}
	if req.MaxIterations != nil && *req.MaxIterations <= 0 {
		return &ValidationError{Field: "max_iterations", Message: "max_iterationsは正の整数で指定してください"}
	}
	return nil
}

// buildOptions はリクエストのオプションをデフォルト値にマージする
func (h *OptimizeHandler) buildOptions(req *OptimizeRequest) *usecase.OptimizeOptions {
	opts := usecase.DefaultOptimizeOptions()
	if len(req.Modes) > 0 {
		opts.Modes = req.Modes
	}
	if req.TimeWeight != nil {
		opts.TimeWeight = *req.TimeWeight
	}
	if req.DistanceWeight != nil {
		opts.DistanceWeight = *req.DistanceWeight
	}
	if req.MaxIterations != nil {
		opts.MaxIterations = *req.MaxIterations
	}
	return opts
}

// revertStatus は最適化失敗時にステータスを作成中に戻す
func (h *OptimizeHandler) revertStatus(c *gin.Context, tripID string) {
	if err := h.itineraryRepo.UpdateStatus(c.Request.Context(), tripID, model.StatusDraft); err != nil {
		log.Printf("⚠️ ステータス更新に失敗: trip=%s %v", tripID, err)
	}
}

// ValidationError はバリデーションエラーを表す
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
