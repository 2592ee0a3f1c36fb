package model

// TransitLeg 公共交通機関ルートの1区間（乗車・徒歩接続など）
type TransitLeg struct {
	Mode            string `json:"mode"`                       // "train", "bus", "walk"など
	LineName        string `json:"line_name,omitempty"`        // 路線名
	DepartureStop   string `json:"departure_stop,omitempty"`   // 乗車駅・停留所
	ArrivalStop     string `json:"arrival_stop,omitempty"`     // 降車駅・停留所
	DurationMinutes int    `json:"duration_minutes"`           // 所要時間（分）
	NumStops        int    `json:"num_stops,omitempty"`        // 停車数
}

// TransitDetails 公共交通機関ルートの詳細情報
type TransitDetails struct {
	Legs            []TransitLeg `json:"legs"`                       // 区間ごとの内訳
	TransferCount   int          `json:"transfer_count"`             // 乗り換え回数
	WaitTimeMinutes int          `json:"wait_time_minutes,omitempty"` // 待ち時間合計（分）
}

// CarGuide 車ルートの区間案内（料金所・経由道路など）
type CarGuide struct {
	Description    string `json:"description"`               // 案内文
	DistanceMeters int    `json:"distance_meters,omitempty"` // 区間距離（メートル）
	TollYen        int    `json:"toll_yen,omitempty"`        // 通行料金（円）
}

// SegmentCost 2地点間の移動コスト（1つの移動手段に対して1件）
type SegmentCost struct {
	FromID          string          `json:"from_id"`
	ToID            string          `json:"to_id"`
	Mode            TransportMode   `json:"mode"`
	DurationMinutes float64         `json:"duration_minutes"`           // 所要時間（分）
	DistanceMeters  float64         `json:"distance_meters,omitempty"`  // 距離（メートル、フォールバック時は直線距離）
	FareYen         int             `json:"fare_yen,omitempty"`         // 運賃（円、transitのみ）
	Polyline        string          `json:"polyline,omitempty"`         // エンコード済みポリライン
	TransitDetails  *TransitDetails `json:"transit_details,omitempty"`  // 公共交通機関の詳細
	CarGuides       []CarGuide      `json:"car_guides,omitempty"`       // 車ルートの案内
	Estimated       bool            `json:"estimated"`                  // 直線距離フォールバックで推定した場合true
}

// DistanceMatrix 全地点ペアの移動コスト行列
// 1回の最適化実行で1度だけ構築され、以降は読み取り専用として扱う
type DistanceMatrix struct {
	IDs       []string         // インデックス→地点IDのマッピング
	index     map[string]int   // 地点ID→インデックスのマッピング
	Durations [][]float64      // 所要時間（分）
	Distances [][]float64      // 距離（メートル、不明な場合は0）
	Modes     [][]TransportMode // 採用された移動手段
	Segments  [][]*SegmentCost // ポリライン・運賃・詳細情報を含む補助データ
}

// NewDistanceMatrix 指定された地点ID一覧から空の行列を作成する
func NewDistanceMatrix(ids []string) *DistanceMatrix {
	n := len(ids)
	m := &DistanceMatrix{
		IDs:       ids,
		index:     make(map[string]int, n),
		Durations: make([][]float64, n),
		Distances: make([][]float64, n),
		Modes:     make([][]TransportMode, n),
		Segments:  make([][]*SegmentCost, n),
	}
	for i, id := range ids {
		m.index[id] = i
		m.Durations[i] = make([]float64, n)
		m.Distances[i] = make([]float64, n)
		m.Modes[i] = make([]TransportMode, n)
		m.Segments[i] = make([]*SegmentCost, n)
	}
	return m
}

// IndexOf 地点IDからインデックスを取得する
func (m *DistanceMatrix) IndexOf(id string) (int, bool) {
	i, ok := m.index[id]
	return i, ok
}

// SetSegment ペアのコストを設定する
func (m *DistanceMatrix) SetSegment(seg *SegmentCost) {
	i, okFrom := m.index[seg.FromID]
	j, okTo := m.index[seg.ToID]
	if !okFrom || !okTo {
		return
	}
	m.Durations[i][j] = seg.DurationMinutes
	m.Distances[i][j] = seg.DistanceMeters
	m.Modes[i][j] = seg.Mode
	m.Segments[i][j] = seg
}

// Segment ペアの補助データを取得する（存在しない場合はnil）
func (m *DistanceMatrix) Segment(fromID, toID string) *SegmentCost {
	i, okFrom := m.index[fromID]
	j, okTo := m.index[toID]
	if !okFrom || !okTo {
		return nil
	}
	return m.Segments[i][j]
}

// Duration ペアの所要時間（分）を取得する（存在しない場合は0とfalse）
func (m *DistanceMatrix) Duration(fromID, toID string) (float64, bool) {
	seg := m.Segment(fromID, toID)
	if seg == nil {
		return 0, false
	}
	return seg.DurationMinutes, true
}

// Distance ペアの距離（メートル）を取得する（存在しない場合は0とfalse）
func (m *DistanceMatrix) Distance(fromID, toID string) (float64, bool) {
	seg := m.Segment(fromID, toID)
	if seg == nil {
		return 0, false
	}
	return seg.DistanceMeters, true
}

// HasPair ペアのコストが定義されているかチェック
func (m *DistanceMatrix) HasPair(fromID, toID string) bool {
	return m.Segment(fromID, toID) != nil
}

// Size 行列に含まれる地点数を取得する
func (m *DistanceMatrix) Size() int {
	return len(m.IDs)
}
