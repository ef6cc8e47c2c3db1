package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	DefaultOpenFDAURL = "https://api.fda.gov/drug"
	labelLimit        = 500
)

// ErrNoLabel FDA 标签库中没有该药品
var ErrNoLabel = errors.New("openfda: no label found")

// LabelSource 药品说明书信息来源
type LabelSource interface {
	Label(ctx context.Context, drug string) (string, error)
}

// OpenFDA 查询 openFDA drug label 接口
type OpenFDA struct {
	baseURL string
	client  *http.Client
}

func NewOpenFDA(baseURL string) *OpenFDA {
	if baseURL == "" {
		baseURL = DefaultOpenFDAURL
	}
	return &OpenFDA{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Label 按品牌名检索第一条标签，返回警告和适应症摘要
func (o *OpenFDA) Label(ctx context.Context, drug string) (string, error) {
	drug = strings.TrimSpace(drug)
	if drug == "" {
		return "", ErrNoLabel
	}
	q := url.Values{}
	q.Set("search", "openfda.brand_name:"+drug)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/label.json?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openfda request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNoLabel
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openfda status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openfda response: %w", err)
	}

	result := gjson.GetBytes(body, "results.0")
	if !result.Exists() {
		return "", ErrNoLabel
	}
	info := fmt.Sprintf("warnings: %s; indications: %s",
		joinField(result.Get("warnings"), "No warnings found"),
		joinField(result.Get("indications_and_usage"), "No indications found"))
	return truncate(info, labelLimit), nil
}

func joinField(r gjson.Result, empty string) string {
	var parts []string
	if r.IsArray() {
		for _, item := range r.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				parts = append(parts, s)
			}
		}
	} else if s := strings.TrimSpace(r.String()); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return empty
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
