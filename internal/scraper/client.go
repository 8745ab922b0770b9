package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/valyala/fasttemplate"
)

// ErrFeedUnavailable 來源網站無法連線或回應格式不正確。
// 呼叫端以略過該任務處理，不視為致命錯誤。
var ErrFeedUnavailable = errors.New("feed unavailable")

// httpClient 來源共用的 HTTP 取回邏輯
type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// buildURL 以 {name} 樣板展開路徑與查詢參數
func (c *httpClient) buildURL(template string, vars map[string]interface{}) string {
	t := fasttemplate.New(template, "{", "}")
	return c.baseURL + t.ExecuteString(vars)
}

// getJSON 取回並解析 JSON 回應
func (c *httpClient) getJSON(ctx context.Context, url string, out interface{}) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrFeedUnavailable, url, err)
	}
	return nil
}

// getCSV 取回原始回應內容並按行切割（期交所下載格式）
func (c *httpClient) getCSV(ctx context.Context, url string) ([][]string, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.Trim(strings.TrimSpace(fields[i]), `"`)
		}
		rows = append(rows, fields)
	}
	return rows, nil
}

func (c *httpClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFeedUnavailable, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	return body, nil
}

// parseNumber 解析千分位數字字串，"--" 等無資料標記回傳 nil
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "--" || s == "---" || s == "N/A" {
		return nil
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return nil
	}
	return &v
}

// rocToISO 民國日期 (113/10/01) 轉 ISO (2024-10-01)
func rocToISO(rocDate string) string {
	parts := strings.Split(rocDate, "/")
	if len(parts) != 3 {
		return ""
	}
	year := cast.ToInt(parts[0]) + 1911
	return fmt.Sprintf("%04d-%02d-%02d", year, cast.ToInt(parts[1]), cast.ToInt(parts[2]))
}

// isoToCompact 2024-10-01 轉 20241001（證交所查詢參數格式）
func isoToCompact(isoDate string) string {
	return strings.ReplaceAll(isoDate, "-", "")
}

// isoToROC 2024-10-01 轉 113/10/01（櫃買中心查詢參數格式）
func isoToROC(isoDate string) string {
	parts := strings.Split(isoDate, "-")
	if len(parts) != 3 {
		return ""
	}
	return fmt.Sprintf("%d/%s/%s", cast.ToInt(parts[0])-1911, parts[1], parts[2])
}

// isoToSlash 2024-10-01 轉 2024/10/01（期交所查詢參數格式）
func isoToSlash(isoDate string) string {
	return strings.ReplaceAll(isoDate, "-", "/")
}
