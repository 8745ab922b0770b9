package config

type Config struct {
	Scraper   ScraperConf   `json:"scraper"`
	Scheduler SchedulerConf `json:"scheduler"`
	Holiday   HolidayConf   `json:"holiday"`
	Telegram  TelegramConf  `json:"telegram"`
}

type ScraperConf struct {
	TwseBaseURL    string `json:"twse_base_url"`    // 證交所 API，預設 https://www.twse.com.tw
	TpexBaseURL    string `json:"tpex_base_url"`    // 櫃買中心 API，預設 https://www.tpex.org.tw
	TaifexBaseURL  string `json:"taifex_base_url"`  // 期交所 API，預設 https://www.taifex.com.tw
	TimeoutSeconds int    `json:"timeout_seconds"`  // 單次請求逾時秒數，預設 30
	GroupDelayMs   int    `json:"group_delay_ms"`   // 行情任務群組間延遲（毫秒），預設 5000
	TaskDelayMs    int    `json:"task_delay_ms"`    // 大盤籌碼任務間延遲（毫秒），預設 2000
	DateDelayMs    int    `json:"date_delay_ms"`    // 回補日期間延遲（毫秒），預設 3000
}

type SchedulerConf struct {
	Enabled bool `json:"enabled"` // 是否啟用每日排程
}

type HolidayConf struct {
	APIURL string `json:"api_url"` // 政府開放資料假日 API
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}
