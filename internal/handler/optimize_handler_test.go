package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"TabiPlan-App/internal/domain/model"
	"TabiPlan-App/internal/usecase"
)

// stubOptimizeUseCase 固定の結果を返すテスト用ユースケース
type stubOptimizeUseCase struct {
	result   *model.OptimizeResult
	err      error
	lastOpts *usecase.OptimizeOptions
}

func (s *stubOptimizeUseCase) Optimize(ctx context.Context, trip *model.TripInput, opts *usecase.OptimizeOptions) (*model.OptimizeResult, error) {
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// stubTripsRepository 固定の旅行データを返すテスト用リポジトリ
type stubTripsRepository struct {
	trip *model.TripInput
	err  error
}

func (s *stubTripsRepository) GetTripInput(ctx context.Context, tripID string) (*model.TripInput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.trip, nil
}

// stubItineraryRepository 保存・状態遷移を記録するテスト用リポジトリ
type stubItineraryRepository struct {
	saved       *model.OptimizeResult
	saveErr     error
	statuses    []model.ItineraryStatus
	itineraries []model.DailyItinerary
	getErr      error
}

func (s *stubItineraryRepository) SaveItineraries(ctx context.Context, result *model.OptimizeResult) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = result
	return nil
}

func (s *stubItineraryRepository) GetItineraries(ctx context.Context, tripID string) ([]model.DailyItinerary, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.itineraries, nil
}

func (s *stubItineraryRepository) UpdateStatus(ctx context.Context, tripID string, status model.ItineraryStatus) error {
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubItineraryRepository) GetStatus(ctx context.Context, tripID string) (model.ItineraryStatus, error) {
	if len(s.statuses) == 0 {
		return model.StatusDraft, nil
	}
	return s.statuses[len(s.statuses)-1], nil
}

func testTrip() *model.TripInput {
	return &model.TripInput{
		TripID:        "trip-1",
		Days:          1,
		StartDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		StartLocation: &model.Location{Latitude: 34.98, Longitude: 135.75},
		Waypoints: []*model.Waypoint{
			{ID: "a", Name: "清水寺", Location: &model.Location{Latitude: 34.99, Longitude: 135.78}},
			{ID: "b", Name: "金閣寺", Location: &model.Location{Latitude: 35.03, Longitude: 135.72}},
		},
	}
}

func successResult() *model.OptimizeResult {
	return &model.OptimizeResult{
		Success: true,
		TripID:  "trip-1",
		RunID:   "run-1",
		Itineraries: []model.DailyItinerary{
			{Day: 1, Date: "2026-04-01", StartTime: "10:00", EndTime: "16:00"},
		},
		CompletedAt: time.Now(),
	}
}

func newOptimizeRouter(uc usecase.OptimizeUseCase, trips *stubTripsRepository, itineraries *stubItineraryRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	optimizeHandler := NewOptimizeHandler(uc, trips, itineraries)
	itineraryHandler := NewItineraryHandler(itineraries)
	router.POST("/trips/:id/optimize", optimizeHandler.PostOptimize)
	router.GET("/trips/:id/itinerary", itineraryHandler.GetItinerary)
	return router
}

func TestPostOptimize(t *testing.T) {
	t.Run("正常系は200で結果を返し状態が遷移する", func(t *testing.T) {
		uc := &stubOptimizeUseCase{result: successResult()}
		itineraryRepo := &stubItineraryRepository{}
		router := newOptimizeRouter(uc, &stubTripsRepository{trip: testTrip()}, itineraryRepo)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/trips/trip-1/optimize", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var result model.OptimizeResult
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, "run-1", result.RunID)

		assert.NotNil(t, itineraryRepo.saved)
		assert.Equal(t, []model.ItineraryStatus{model.StatusOptimizing, model.StatusOptimized}, itineraryRepo.statuses)
	})

	t.Run("オプションはデフォルト値にマージされる", func(t *testing.T) {
		uc := &stubOptimizeUseCase{result: successResult()}
		router := newOptimizeRouter(uc, &stubTripsRepository{trip: testTrip()}, &stubItineraryRepository{})

		body := bytes.NewBufferString(`{"modes":["driving"],"max_iterations":50}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/trips/trip-1/optimize", body)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		if assert.NotNil(t, uc.lastOpts) {
			assert.Equal(t, []model.TransportMode{model.ModeDriving}, uc.lastOpts.Modes)
			assert.Equal(t, 50, uc.lastOpts.MaxIterations)
			assert.Equal(t, 1.0, uc.lastOpts.TimeWeight) // 未指定はデフォルトのまま
		}
	})

	t.Run("リクエストでmodes省略時は旅行データのallowed_modesが活きる", func(t *testing.T) {
		uc := &stubOptimizeUseCase{result: successResult()}
		trip := testTrip()
		trip.AllowedModes = []model.TransportMode{model.ModeDriving}
		router := newOptimizeRouter(uc, &stubTripsRepository{trip: trip}, &stubItineraryRepository{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/trips/trip-1/optimize", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		if assert.NotNil(t, uc.lastOpts) {
			// Modesを空のまま渡すことで、ユースケース側のallowed_modesフォールバックが有効になる
			assert.Empty(t, uc.lastOpts.Modes)
		}
	})

	t.Run("不正な移動手段は400", func(t *testing.T) {
		uc := &stubOptimizeUseCase{result: successResult()}
		router := newOptimizeRouter(uc, &stubTripsRepository{trip: testTrip()}, &stubItineraryRepository{})

		body := bytes.NewBufferString(`{"modes":["teleport"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/trips/trip-1/optimize", body)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("旅行が存在しない場合は404", func(t *testing.T) {
		uc := &stubOptimizeUseCase{result: successResult()}
		trips := &stubTripsRepository{err: errors.New("旅行 trip-x が見つかりません")}
		router := newOptimizeRouter(uc, trips, &stubItineraryRepository{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/trips/trip-x/optimize", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("致命的エラーの結果は422で状態が戻る", func(t *testing.T) {
		failed := &model.OptimizeResult{
			Success: false,
			TripID:  "trip-1",
			Errors: []model.OptimizeError{
				*model.NewOptimizeError(model.ErrInsufficientPlaces, "最適化には2件以上のスポットが必要です"),
			},
		}
		uc := &stubOptimizeUseCase{result: failed}
		itineraryRepo := &stubItineraryRepository{}
		router := newOptimizeRouter(uc, &stubTripsRepository{trip: testTrip()}, itineraryRepo)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/trips/trip-1/optimize", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Nil(t, itineraryRepo.saved)
		assert.Equal(t, []model.ItineraryStatus{model.StatusOptimizing, model.StatusDraft}, itineraryRepo.statuses)
	})

	t.Run("ユースケースのエラーは500", func(t *testing.T) {
		uc := &stubOptimizeUseCase{err: errors.New("接続が切断されました")}
		router := newOptimizeRouter(uc, &stubTripsRepository{trip: testTrip()}, &stubItineraryRepository{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/trips/trip-1/optimize", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetItinerary(t *testing.T) {
	t.Run("保存済みの行程を状態付きで返す", func(t *testing.T) {
		itineraryRepo := &stubItineraryRepository{
			statuses: []model.ItineraryStatus{model.StatusOptimized},
			itineraries: []model.DailyItinerary{
				{Day: 1, Date: "2026-04-01"},
				{Day: 2, Date: "2026-04-02"},
			},
		}
		router := newOptimizeRouter(&stubOptimizeUseCase{}, &stubTripsRepository{}, itineraryRepo)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/trips/trip-1/itinerary", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			TripID      string                 `json:"trip_id"`
			Status      model.ItineraryStatus  `json:"status"`
			Itineraries []model.DailyItinerary `json:"itineraries"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "trip-1", response.TripID)
		assert.Equal(t, model.StatusOptimized, response.Status)
		assert.Len(t, response.Itineraries, 2)
	})

	t.Run("行程が未保存の場合は404", func(t *testing.T) {
		itineraryRepo := &stubItineraryRepository{
			getErr: errors.New("旅行 trip-1 の行程が見つかりません"),
		}
		router := newOptimizeRouter(&stubOptimizeUseCase{}, &stubTripsRepository{}, itineraryRepo)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/trips/trip-1/itinerary", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
