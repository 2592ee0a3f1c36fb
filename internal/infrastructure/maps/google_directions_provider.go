package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"TabiPlan-App/internal/domain/model"
	"TabiPlan-App/internal/domain/repository"
)

// GoogleDirectionsProvider はGoogle Maps Directions APIを使用した経路コスト取得の実装
// 徒歩・車・公共交通機関の3モードに対応し、APIのエラー形式を
// repository.ProviderErrorの分類に正規化する
type GoogleDirectionsProvider struct {
	apiKey     string
	httpClient *http.Client
}

// NewGoogleDirectionsProvider は新しいプロバイダを生成する
func NewGoogleDirectionsProvider(apiKey string) *GoogleDirectionsProvider {
	return &GoogleDirectionsProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewProvidersForModes は全移動手段分のプロバイダマップを作成する便利関数
func NewProvidersForModes(apiKey string) map[model.TransportMode]repository.SegmentCostProvider {
	provider := NewGoogleDirectionsProvider(apiKey)
	return map[model.TransportMode]repository.SegmentCostProvider{
		model.ModeWalking: provider,
		model.ModeDriving: provider,
		model.ModeTransit: provider,
	}
}

// GetSegmentCost はGoogle Maps Directions APIを呼び出して1ペア・1移動手段のコストを取得する
func (g *GoogleDirectionsProvider) GetSegmentCost(ctx context.Context, fromID, toID string, from, to model.LatLng, mode model.TransportMode) (*model.SegmentCost, error) {
	// 1. APIリクエストURLを構築
	reqURL := g.buildURL(from, to, mode)

	// 2. HTTPリクエストを作成・実行
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, repository.NewProviderError(repository.KindInvalidRequest, "リクエストの作成に失敗", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, repository.NewProviderError(repository.KindTimeout, "APIリクエストがタイムアウト", err)
		}
		return nil, repository.NewProviderError(repository.KindServerError, "APIリクエストに失敗", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, repository.NewProviderError(repository.KindRateLimited, "APIレート制限", nil)
	case resp.StatusCode >= 500:
		return nil, repository.NewProviderError(repository.KindServerError,
			fmt.Sprintf("APIからエラーステータスが返されました: %s", resp.Status), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, repository.NewProviderError(repository.KindInvalidRequest,
			fmt.Sprintf("APIからエラーステータスが返されました: %s", resp.Status), nil)
	}

	// 3. JSONレスポンスをパース
	var apiResp googleRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, repository.NewProviderError(repository.KindServerError, "JSONのパースに失敗", err)
	}

	// 4. APIステータスをエラー分類に正規化
	switch apiResp.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, repository.NewProviderError(repository.KindNoRoute, "有効な経路が存在しません", nil)
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return nil, repository.NewProviderError(repository.KindRateLimited, "APIクエリ上限に到達", nil)
	case "INVALID_REQUEST", "MAX_WAYPOINTS_EXCEEDED", "REQUEST_DENIED":
		return nil, repository.NewProviderError(repository.KindInvalidRequest, apiResp.ErrorMessage, nil)
	default:
		return nil, repository.NewProviderError(repository.KindServerError,
			fmt.Sprintf("APIステータス異常: %s", apiResp.Status), nil)
	}

	if len(apiResp.Routes) == 0 {
		return nil, repository.NewProviderError(repository.KindNoRoute, "APIから有効なルートが返されませんでした", nil)
	}

	// 5. ドメインモデルに変換して返す
	return g.toSegmentCost(fromID, toID, mode, &apiResp.Routes[0]), nil
}

// toSegmentCost はAPIレスポンスの1ルートをSegmentCostに変換する
func (g *GoogleDirectionsProvider) toSegmentCost(fromID, toID string, mode model.TransportMode, r *route) *model.SegmentCost {
	var totalDurationSec, totalDistanceM int
	for _, leg := range r.Legs {
		totalDurationSec += leg.Duration.Value
		totalDistanceM += leg.Distance.Value
	}

	seg := &model.SegmentCost{
		FromID:          fromID,
		ToID:            toID,
		Mode:            mode,
		DurationMinutes: float64(totalDurationSec) / 60,
		DistanceMeters:  float64(totalDistanceM),
		Polyline:        r.OverviewPolyline.Points,
	}

	if r.Fare != nil {
		seg.FareYen = int(r.Fare.Value)
	}

	switch mode {
	case model.ModeTransit:
		details, err := g.parseTransitDetails(r)
		if err != nil {
			// 区間全体の所要時間・距離は有効なまま、内訳のみを落とす
			log.Printf("⚠️  公共交通機関の詳細パースに失敗 (%s→%s): %v", fromID, toID, err)
		} else {
			seg.TransitDetails = details
		}
	case model.ModeDriving:
		seg.CarGuides = g.parseCarGuides(r)
	}

	return seg
}

// parseTransitDetails は公共交通機関ルートの区間内訳を組み立てる
func (g *GoogleDirectionsProvider) parseTransitDetails(r *route) (*model.TransitDetails, error) {
	details := &model.TransitDetails{}
	transitLegCount := 0

	for _, leg := range r.Legs {
		for _, step := range leg.Steps {
			tl := model.TransitLeg{
				Mode:            step.TravelMode,
				DurationMinutes: step.Duration.Value / 60,
			}
			if step.TravelMode == "TRANSIT" {
				if step.TransitDetails == nil {
					return nil, errors.New("TRANSITステップに詳細情報がありません")
				}
				tl.Mode = step.TransitDetails.Line.Vehicle.Type
				tl.LineName = step.TransitDetails.Line.ShortName
				if tl.LineName == "" {
					tl.LineName = step.TransitDetails.Line.Name
				}
				tl.DepartureStop = step.TransitDetails.DepartureStop.Name
				tl.ArrivalStop = step.TransitDetails.ArrivalStop.Name
				tl.NumStops = step.TransitDetails.NumStops
				transitLegCount++
			}
			details.Legs = append(details.Legs, tl)
		}
	}

	if transitLegCount > 0 {
		details.TransferCount = transitLegCount - 1
	}
	return details, nil
}

// parseCarGuides は車ルートの区間案内を組み立てる
func (g *GoogleDirectionsProvider) parseCarGuides(r *route) []model.CarGuide {
	var guides []model.CarGuide
	for _, leg := range r.Legs {
		for _, step := range leg.Steps {
			if step.HTMLInstructions == "" {
				continue
			}
			guides = append(guides, model.CarGuide{
				Description:    step.HTMLInstructions,
				DistanceMeters: step.Distance.Value,
			})
		}
	}
	return guides
}

func (g *GoogleDirectionsProvider) buildURL(from, to model.LatLng, mode model.TransportMode) string {
	baseURL := "https://maps.googleapis.com/maps/api/directions/json"
	params := url.Values{}
	params.Set("origin", fmt.Sprintf("%f,%f", from.Lat, from.Lng))
	params.Set("destination", fmt.Sprintf("%f,%f", to.Lat, to.Lng))
	params.Set("mode", string(mode))
	params.Set("language", "ja")
	params.Set("key", g.apiKey)
	return fmt.Sprintf("%s?%s", baseURL, params.Encode())
}

// --- Google Maps APIのレスポンスをパースするための構造体 ---

type googleRouteResponse struct {
	Routes       []route `json:"routes"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
}
type route struct {
	Legs             []leg            `json:"legs"`
	OverviewPolyline overviewPolyline `json:"overview_polyline"`
	Fare             *fare            `json:"fare,omitempty"`
}
type leg struct {
	Duration valueField `json:"duration"`
	Distance valueField `json:"distance"`
	Steps    []step     `json:"steps"`
}
type step struct {
	TravelMode       string          `json:"travel_mode"`
	HTMLInstructions string          `json:"html_instructions"`
	Duration         valueField      `json:"duration"`
	Distance         valueField      `json:"distance"`
	TransitDetails   *transitDetails `json:"transit_details,omitempty"`
}
type transitDetails struct {
	Line          transitLine `json:"line"`
	DepartureStop stop        `json:"departure_stop"`
	ArrivalStop   stop        `json:"arrival_stop"`
	NumStops      int         `json:"num_stops"`
}
type transitLine struct {
	Name      string  `json:"name"`
	ShortName string  `json:"short_name"`
	Vehicle   vehicle `json:"vehicle"`
}
type vehicle struct {
	Type string `json:"type"`
}
type stop struct {
	Name string `json:"name"`
}
type fare struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
}
type valueField struct {
	Value int `json:"value"` // seconds / meters
}
type overviewPolyline struct {
	Points string `json:"points"`
}
