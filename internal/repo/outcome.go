package repo

// UpsertOutcome 智能更新的寫入結果分類
type UpsertOutcome string

const (
	OutcomeCreated   UpsertOutcome = "created"   // 原本無資料，新增
	OutcomeUpdated   UpsertOutcome = "updated"   // 關鍵欄位有變化，更新
	OutcomeUnchanged UpsertOutcome = "unchanged" // 資料相同，跳過寫入
)

// BatchResult 批量智能更新的統計結果
type BatchResult struct {
	Updated int `json:"updated"` // 新增或更新筆數
	Skipped int `json:"skipped"` // 資料相同而跳過的筆數
	Failed  int `json:"failed"`  // 寫入失敗筆數（單筆失敗不中斷批次）
	Total   int `json:"total"`   // 批次總筆數
}

// floatChanged 判斷新值是否存在且與既有值不同。
// 新值為 nil 代表該欄位這次沒有提供，不視為變化。
func floatChanged(existing, incoming *float64) bool {
	if incoming == nil {
		return false
	}
	if existing == nil {
		return true
	}
	return *existing != *incoming
}

// mergeFloat 以新值覆蓋既有值，新值為 nil 時保留原值
func mergeFloat(dst **float64, src *float64) {
	if src != nil {
		*dst = src
	}
}
