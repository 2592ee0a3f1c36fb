package service

import (
	"fmt"
	"log"

	"TabiPlan-App/internal/domain/helper"
	"TabiPlan-App/internal/domain/model"
)

// 宿チェックイン手続きの所要時間（分）
const lodgingCheckInMinutes = 30

// ItinerarySynthesizer は訪問順が決まった1日分の計画を、
// 到着・出発時刻付きの確定した行程（DailyItinerary）に変換するサービス
type ItinerarySynthesizer struct{}

// NewItinerarySynthesizer は新しいItinerarySynthesizerインスタンスを作成する
func NewItinerarySynthesizer() *ItinerarySynthesizer {
	return &ItinerarySynthesizer{}
}

// SynthesisInput 1日分の行程合成への入力
type SynthesisInput struct {
	Trip         *model.TripInput
	Plan         model.DayPlan        // 宿チェックイン位置のマークを含む
	Order        []string             // 確定した訪問順
	Matrix       *model.DistanceMatrix
	PrevLastStop *model.Waypoint // 前日の最後の訪問スポット（ない場合はnil）
}

// ResolveDayOrigin はその日の起点を解決する
// 初日は旅行の出発地点、以降は宿泊施設（その日に適用される場合）、なければ前日の最後のスポット
// 戻り値の2つ目は距離行列上の地点ID
func (s *ItinerarySynthesizer) ResolveDayOrigin(trip *model.TripInput, day int, prevLast *model.Waypoint) (*model.DayAnchor, string) {
	if day == 1 {
		return &model.DayAnchor{
			Kind:     model.AnchorTripOrigin,
			Name:     "出発地点",
			Location: trip.StartLocation,
		}, OriginPointID
	}
	if lodging := trip.LodgingForDay(day - 1); lodging != nil {
		// 前夜に泊まった宿から出発する
		return &model.DayAnchor{
			Kind:     model.AnchorLodging,
			Name:     lodging.Name,
			Location: lodging.Location,
		}, LodgingPointID
	}
	if prevLast != nil {
		return &model.DayAnchor{
			Kind:     model.AnchorPreviousLastStop,
			Name:     prevLast.Name,
			PlaceID:  prevLast.ID,
			Location: prevLast.Location,
		}, prevLast.ID
	}
	// 前日の訪問が1件もない場合は出発地点から継続する
	return &model.DayAnchor{
		Kind:     model.AnchorTripOrigin,
		Name:     "出発地点",
		Location: trip.StartLocation,
	}, OriginPointID
}

// ResolveDayDestination はその日の終点を解決する
// 最終日は旅行の最終目的地、中日は宿泊施設（適用される場合）、なければ終点なし
// 終点なしの場合はnilと空文字列を返す（翌日は最後のスポットから継続）
func (s *ItinerarySynthesizer) ResolveDayDestination(trip *model.TripInput, day int) (*model.DayAnchor, string) {
	if day == trip.Days {
		if trip.EndLocation != nil {
			return &model.DayAnchor{
				Kind:     model.AnchorTripDestination,
				Name:     "最終目的地",
				Location: trip.EndLocation,
			}, DestinationPointID
		}
		return nil, ""
	}
	if lodging := trip.LodgingForDay(day); lodging != nil {
		return &model.DayAnchor{
			Kind:     model.AnchorLodging,
			Name:     lodging.Name,
			Location: lodging.Location,
		}, LodgingPointID
	}
	return nil, ""
}

// SynthesizeDay は1日分の訪問順を時刻付きの行程に変換する
// 固定スケジュールのスポットには開始時刻まで待機し、宿チェックインはマークされた位置に挿入する
func (s *ItinerarySynthesizer) SynthesizeDay(in SynthesisInput) (*model.DailyItinerary, []model.OptimizeError) {
	trip := in.Trip
	day := in.Plan.Day
	byID := waypointsByID(trip)
	var warnings []model.OptimizeError

	originAnchor, originID := s.ResolveDayOrigin(trip, day, in.PrevLastStop)
	destAnchor, destID := s.ResolveDayDestination(trip, day)

	itinerary := &model.DailyItinerary{
		Day:            day,
		Date:           trip.DateForDay(day).Format("2006-01-02"),
		StartTime:      s.dayStartClock(trip, day),
		DayOrigin:      originAnchor,
		DayDestination: destAnchor,
	}

	current := helper.ParseClockMinutes(itinerary.StartTime)

	if len(in.Order) == 0 {
		// 訪問スポットのない日：起点から終点への移動のみ（終点がある場合）
		if destID != "" {
			if seg := in.Matrix.Segment(originID, destID); seg != nil {
				itinerary.TransportToDest = s.toTransportSegment(seg)
				itinerary.TotalDistanceMeters += seg.DistanceMeters
				itinerary.TotalTravelMinutes += seg.DurationMinutes
				current += int(seg.DurationMinutes)
			}
		}
		itinerary.EndTime = helper.FormatClockMinutes(current)
		return itinerary, warnings
	}

	breakIndex := -1
	if in.Plan.LodgingBreakIndex != nil {
		breakIndex = *in.Plan.LodgingBreakIndex
	}
	lodging := trip.LodgingForDay(day)

	// 起点から最初のスポットへの移動（先頭チェックインの場合は宿経由）
	if lodging != nil && breakIndex == 0 {
		current = s.spliceLodgingEvent(itinerary, in.Matrix, lodging, originID, in.Order[0], current, 0)
	} else if seg := in.Matrix.Segment(originID, in.Order[0]); seg != nil {
		itinerary.TransportFromOrigin = s.toTransportSegment(seg)
		itinerary.TotalDistanceMeters += seg.DistanceMeters
		itinerary.TotalTravelMinutes += seg.DurationMinutes
		warnings = append(warnings, s.checkTransitDetails(seg)...)
		current += int(seg.DurationMinutes)
	}

	prevID := ""
	for i, id := range in.Order {
		w, ok := byID[id]
		if !ok {
			continue
		}

		// マークされた位置に宿チェックインを挿入する
		// （宿経由の移動時間はspliceLodgingEvent側で加算済み）
		splicedHere := false
		if lodging != nil && breakIndex == i && i > 0 {
			current = s.spliceLodgingEvent(itinerary, in.Matrix, lodging, prevID, id, current, i)
			prevID = LodgingPointID
			splicedHere = true
		}

		if i > 0 && !splicedHere {
			if seg := in.Matrix.Segment(prevID, id); seg != nil {
				current += int(seg.DurationMinutes)
			}
		}

		arrival := current
		if w.IsFixed {
			if fixedAt := fixedStartMinutes(w); fixedAt >= 0 {
				if arrival < fixedAt {
					// 固定開始時刻まで待機する
					arrival = fixedAt
				} else if arrival > fixedAt+model.FixedArrivalSlackMinutes {
					warnings = append(warnings, *model.NewOptimizeError(model.ErrFixedScheduleConflict,
						fmt.Sprintf("固定スケジュール「%s」への到着が開始時刻に間に合いません", w.Name)).
						WithPlace(w.ID).
						WithDetail("day", day).
						WithDetail("fixed_start", *w.FixedStartTime).
						WithDetail("arrival", helper.FormatClockMinutes(arrival)))
				}
			}
		}

		stay := stayMinutes(w)
		departure := arrival + stay

		item := model.ScheduleItem{
			Order:         len(itinerary.Items) + 1,
			PlaceID:       w.ID,
			Name:          w.Name,
			Location:      w.Location,
			ArrivalTime:   helper.FormatClockMinutes(arrival),
			DepartureTime: helper.FormatClockMinutes(departure),
			StayMinutes:   stay,
			IsFixed:       w.IsFixed,
		}

		// 次のスポットへの移動区間を付与する（最後のスポットは終点への区間として別途扱う）
		if i < len(in.Order)-1 {
			nextID := in.Order[i+1]
			segFromID := id
			if lodging != nil && breakIndex == i+1 {
				// 次の移動は宿経由になるためここでは付与しない
				segFromID = ""
			}
			if segFromID != "" {
				if seg := in.Matrix.Segment(id, nextID); seg != nil {
					item.TransportToNext = s.toTransportSegment(seg)
					itinerary.TotalDistanceMeters += seg.DistanceMeters
					itinerary.TotalTravelMinutes += seg.DurationMinutes
					warnings = append(warnings, s.checkTransitDetails(seg)...)
				}
			}
		}

		itinerary.Items = append(itinerary.Items, item)
		itinerary.TotalStayMinutes += stay
		current = departure
		prevID = id
	}

	// 全訪問後のチェックイン（マークが末尾の場合）
	lastID := in.Order[len(in.Order)-1]
	if lodging != nil && breakIndex >= len(in.Order) {
		current = s.spliceLodgingEvent(itinerary, in.Matrix, lodging, lastID, "", current, len(in.Order))
		lastID = LodgingPointID
	}

	// 最後のスポットから終点への移動
	if destID != "" && destID != lastID {
		if seg := in.Matrix.Segment(lastID, destID); seg != nil {
			itinerary.TransportToDest = s.toTransportSegment(seg)
			itinerary.TotalDistanceMeters += seg.DistanceMeters
			itinerary.TotalTravelMinutes += seg.DurationMinutes
			warnings = append(warnings, s.checkTransitDetails(seg)...)
			current += int(seg.DurationMinutes)
		}
	}

	itinerary.EndTime = helper.FormatClockMinutes(current)
	itinerary.PlaceCount = len(itinerary.Items)

	log.Printf("🗓️  %d日目 行程確定: %d箇所 %s〜%s (移動%.0f分 滞在%d分)",
		day, itinerary.PlaceCount, itinerary.StartTime, itinerary.EndTime,
		itinerary.TotalTravelMinutes, itinerary.TotalStayMinutes)
	return itinerary, warnings
}

// spliceLodgingEvent は宿チェックインイベントを行程に挿入し、チェックイン後の時刻を返す
// fromIDから宿への移動、チェックイン手続き、（次の訪問がある場合）宿からnextIDへの移動で構成される
func (s *ItinerarySynthesizer) spliceLodgingEvent(itinerary *model.DailyItinerary, matrix *model.DistanceMatrix, lodging *model.LodgingInfo, fromID, nextID string, current int, afterOrder int) int {
	event := &model.LodgingEvent{
		Name:            lodging.Name,
		Address:         lodging.Address,
		Location:        lodging.Location,
		DurationMinutes: lodgingCheckInMinutes,
		AfterOrder:      afterOrder,
	}

	if seg := matrix.Segment(fromID, LodgingPointID); seg != nil {
		event.TransportTo = s.toTransportSegment(seg)
		itinerary.TotalDistanceMeters += seg.DistanceMeters
		itinerary.TotalTravelMinutes += seg.DurationMinutes
		current += int(seg.DurationMinutes)
	}

	// チェックイン開始は到着とチェックイン可能時刻の遅い方
	if checkInAt := helper.ParseClockMinutes(lodging.CheckInTime); checkInAt > current {
		current = checkInAt
	}
	event.CheckInTime = helper.FormatClockMinutes(current)
	current += lodgingCheckInMinutes

	if nextID != "" {
		if seg := matrix.Segment(LodgingPointID, nextID); seg != nil {
			event.TransportFrom = s.toTransportSegment(seg)
			itinerary.TotalDistanceMeters += seg.DistanceMeters
			itinerary.TotalTravelMinutes += seg.DurationMinutes
			// 宿から次のスポットへの移動時間はループ側で加算せずここで加算する
			current += int(seg.DurationMinutes)
		}
	}

	itinerary.Lodging = event
	return current
}

// toTransportSegment はSegmentCostを表示用の移動区間に変換する
func (s *ItinerarySynthesizer) toTransportSegment(seg *model.SegmentCost) *model.TransportSegment {
	return &model.TransportSegment{
		Mode:            seg.Mode,
		DurationMinutes: seg.DurationMinutes,
		DistanceMeters:  seg.DistanceMeters,
		Description:     fmt.Sprintf("%s 約%d分", model.GetTransportModeJapaneseName(seg.Mode), int(seg.DurationMinutes+0.5)),
		FareYen:         seg.FareYen,
		Polyline:        seg.Polyline,
		TransitDetails:  seg.TransitDetails,
		CarGuides:       seg.CarGuides,
		Estimated:       seg.Estimated,
	}
}

// checkTransitDetails は公共交通機関区間の詳細欠落を警告として報告する
// 区間全体の所要時間・距離は有効なまま、内訳のみが落ちているケース
func (s *ItinerarySynthesizer) checkTransitDetails(seg *model.SegmentCost) []model.OptimizeError {
	if seg.Mode != model.ModeTransit || seg.Estimated || seg.TransitDetails != nil {
		return nil
	}
	return []model.OptimizeError{
		*model.NewOptimizeError(model.ErrTransitDetailsError, "公共交通機関の詳細内訳を取得できませんでした").
			WithDetail("from_id", seg.FromID).
			WithDetail("to_id", seg.ToID),
	}
}

// dayStartClock その日の行動開始時刻を取得する
func (s *ItinerarySynthesizer) dayStartClock(trip *model.TripInput, day int) string {
	if limit := trip.LimitForDay(day); limit != nil {
		if helper.ParseClockMinutes(limit.StartTime) >= 0 {
			return limit.StartTime
		}
	}
	return model.DefaultDayStartTime
}
