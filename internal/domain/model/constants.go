package model

// TransportMode 移動手段を表す型
type TransportMode string

// TransportModeConstants アプリケーションで使用する移動手段の定数
const (
	ModeWalking TransportMode = "walking" // 徒歩
	ModeTransit TransportMode = "transit" // 公共交通機関
	ModeDriving TransportMode = "driving" // 車
)

// FallbackSpeedKmh 経路が取得できなかった場合の直線距離フォールバックに使う平均速度 (km/h)
var FallbackSpeedKmh = map[TransportMode]float64{
	ModeWalking: 4.0,  // 徒歩
	ModeTransit: 20.0, // 待ち時間込みの実効速度
	ModeDriving: 30.0, // 市街地の実効速度
}

// TransportModeNameMap は移動手段から日本語名へのマッピング
var TransportModeNameMap = map[TransportMode]string{
	ModeWalking: "徒歩",
	ModeTransit: "公共交通機関",
	ModeDriving: "車",
}

// GetTransportModeJapaneseName は移動手段の日本語名を取得する
func GetTransportModeJapaneseName(mode TransportMode) string {
	if name, ok := TransportModeNameMap[mode]; ok {
		return name
	}
	return string(mode)
}

// GetAllTransportModes は全移動手段の一覧を取得する
func GetAllTransportModes() []TransportMode {
	return []TransportMode{ModeWalking, ModeTransit, ModeDriving}
}

// IsValidTransportMode 移動手段が有効かチェック
func IsValidTransportMode(mode TransportMode) bool {
	_, ok := FallbackSpeedKmh[mode]
	return ok
}

// スケジューリングのデフォルト値
const (
	DefaultDayStartTime    = "10:00" // デフォルトの行動開始時刻
	DefaultDayEndTime      = "20:00" // デフォルトの行動終了時刻
	DefaultDayMaxMinutes   = 600     // 1日あたりの滞在+移動の上限（分）
	FirstLastDayMaxMinutes = 480     // 初日・最終日は出発地/目的地への移動があるため短め
	DefaultStayMinutes     = 60      // 滞在時間未設定時のデフォルト（分）
	defaultPriority        = 100     // 優先度未設定時の値（最低優先度）
)

// FixedArrivalSlackMinutes 固定開始時刻に対する到着遅れの許容値（分）
// これを超えて遅れる場合はその日の固定スケジュール競合として扱う
const FixedArrivalSlackMinutes = 30
