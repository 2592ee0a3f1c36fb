package repository

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"TabiPlan-App/internal/domain/model"
)

const (
	itinerariesCollection = "tripItineraries"
	statusCollection      = "tripStatus"
	itineraryTTLHours     = 720 // 30日でFirestoreのTTLにより自動削除
)

// FirestoreItineraryRepository Firestoreを使用した行程の永続化リポジトリ
// 再最適化時は同じ旅行IDの既存ドキュメントを置き換える（書き込み時キャッシュ無効化）
type FirestoreItineraryRepository struct {
	client *firestore.Client
}

// NewFirestoreItineraryRepository 新しいFirestoreItineraryRepositoryインスタンスを作成
func NewFirestoreItineraryRepository(client *firestore.Client) *FirestoreItineraryRepository {
	return &FirestoreItineraryRepository{
		client: client,
	}
}

// SaveItineraries は最適化結果の全日程を保存する
// 既存の行程ドキュメントを先に削除してから書き込むため、再実行しても冪等に上書きされる
func (r *FirestoreItineraryRepository) SaveItineraries(ctx context.Context, result *model.OptimizeResult) error {
	if result.TripID == "" {
		return fmt.Errorf("trip_idが指定されていません")
	}

	// 既存の行程を無効化（削除）してから新しい行程を書き込む
	if err := r.deleteExisting(ctx, result.TripID); err != nil {
		return fmt.Errorf("既存の行程の削除に失敗しました: %w", err)
	}

	collection := r.client.Collection(itinerariesCollection)
	for i := range result.Itineraries {
		itinerary := &result.Itineraries[i]
		if itinerary.RouteBounds == nil {
			itinerary.RouteBounds = CreateItineraryBounds(itinerary)
		}
		docID := fmt.Sprintf("%s_day%d", result.TripID, itinerary.Day)
		data := itinerary.ToFirestoreItinerary(result.TripID, result.RunID, itineraryTTLHours)

		if _, err := collection.Doc(docID).Set(ctx, data); err != nil {
			log.Printf("❌ Failed to save itinerary %s: %v", docID, err)
			return fmt.Errorf("行程の保存に失敗しました: %w", err)
		}
	}

	log.Printf("💾 行程保存完了: trip=%s %d日分 (run: %s)", result.TripID, len(result.Itineraries), result.RunID)
	return nil
}

// GetItineraries は指定された旅行の行程を日番号順に取得する
func (r *FirestoreItineraryRepository) GetItineraries(ctx context.Context, tripID string) ([]model.DailyItinerary, error) {
	iter := r.client.Collection(itinerariesCollection).
		Where("trip_id", "==", tripID).
		Documents(ctx)
	defer iter.Stop()

	var itineraries []model.DailyItinerary
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("行程の取得に失敗しました: %w", err)
		}

		var data model.FirestoreItinerary
		if err := doc.DataTo(&data); err != nil {
			return nil, fmt.Errorf("データの変換に失敗しました: %w", err)
		}
		itineraries = append(itineraries, data.Itinerary)
	}

	if len(itineraries) == 0 {
		return nil, fmt.Errorf("行程が見つかりません（未最適化または有効期限切れ）: %s", tripID)
	}

	sort.Slice(itineraries, func(i, j int) bool {
		return itineraries[i].Day < itineraries[j].Day
	})
	return itineraries, nil
}

// UpdateStatus は旅行の行程状態を更新する
func (r *FirestoreItineraryRepository) UpdateStatus(ctx context.Context, tripID string, status model.ItineraryStatus) error {
	_, err := r.client.Collection(statusCollection).Doc(tripID).Set(ctx, map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("状態の更新に失敗しました: %w", err)
	}
	log.Printf("📌 状態更新: trip=%s → %s", tripID, status)
	return nil
}

// GetStatus は旅行の行程状態を取得する（未設定はdraft扱い）
func (r *FirestoreItineraryRepository) GetStatus(ctx context.Context, tripID string) (model.ItineraryStatus, error) {
	doc, err := r.client.Collection(statusCollection).Doc(tripID).Get(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "not found") {
			return model.StatusDraft, nil
		}
		return "", fmt.Errorf("状態の取得に失敗しました: %w", err)
	}

	raw, err := doc.DataAt("status")
	if err != nil {
		return model.StatusDraft, nil
	}
	if s, ok := raw.(string); ok {
		return model.ItineraryStatus(s), nil
	}
	return model.StatusDraft, nil
}

// deleteExisting 指定された旅行の既存行程ドキュメントを削除する
func (r *FirestoreItineraryRepository) deleteExisting(ctx context.Context, tripID string) error {
	iter := r.client.Collection(itinerariesCollection).
		Where("trip_id", "==", tripID).
		Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return err
		}
	}
	return nil
}
