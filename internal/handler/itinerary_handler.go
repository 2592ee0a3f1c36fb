package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"TabiPlan-App/internal/domain/repository"
)

// ItineraryHandler は確定済み行程の取得APIのハンドラー
type ItineraryHandler struct {
	itineraryRepo repository.ItineraryRepository
}

// NewItineraryHandler は新しいItineraryHandlerインスタンスを作成
func NewItineraryHandler(itineraryRepo repository.ItineraryRepository) *ItineraryHandler {
	return &ItineraryHandler{
		itineraryRepo: itineraryRepo,
	}
}

// GetItinerary は旅行の確定済み行程を取得するエンドポイント
// GET /trips/:id/itinerary
func (h *ItineraryHandler) GetItinerary(c *gin.Context) {
	tripID := c.Param("id")
	if tripID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "trip_idが指定されていません",
		})
		return
	}

	status, err := h.itineraryRepo.GetStatus(c.Request.Context(), tripID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "ステータスの取得に失敗しました",
			"details": err.Error(),
		})
		return
	}

	itineraries, err := h.itineraryRepo.GetItineraries(c.Request.Context(), tripID)
	if err != nil {
		if strings.Contains(err.Error(), "見つかりません") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "行程が見つかりません",
				"status":  status,
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "行程の取得に失敗しました",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trip_id":     tripID,
		"status":      status,
		"itineraries": itineraries,
	})
}
