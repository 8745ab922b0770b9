package xe

import (
	"github.com/go-orz/orz"
)

var (
	ErrInvalidParams = orz.NewError(40000, "參數錯誤")
	ErrInvalidDate   = orz.NewError(40001, "日期格式錯誤，須為 YYYY-MM-DD")
	ErrInvalidRange  = orz.NewError(40002, "日期區間錯誤，起日不可晚於迄日")
	ErrDataNotFound  = orz.NewError(40400, "查無資料")
	ErrNoTradingDay  = orz.NewError(40401, "回溯期間內找不到交易日")
)
