package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/tidwall/gjson"

	"github.com/medtriage/service"
)

func init() {
	service.RegisterOptionsParser(service.OpenSearch, func(meta *toml.MetaData, primitive toml.Primitive) (any, error) {
		return service.ParseOptions[Options](meta, primitive, service.OpenSearch)
	})

	service.RegisterService(service.OpenSearch, func(meta service.ServiceMeta, opts any) (service.Service, error) {
		osOpts, ok := opts.(*Options)
		if !ok {
			return nil, fmt.Errorf("invalid opensearch options type, got %T", opts)
		}
		return NewService(meta, osOpts)
	})
}

const (
	defaultField = "content"
	defaultSize  = 3
)

type Options struct {
	Addresses []string `toml:"addresses" validate:"required,min=1,dive,url"`
	Username  string   `toml:"username"`
	Password  string   `toml:"password"`
	Index     string   `toml:"index" validate:"required"`
	// Field 文档中保存证据文本的字段
	Field string `toml:"field"`
	Size  int    `toml:"size" validate:"omitempty,min=1,max=20"`
}

// Service 在 OpenSearch 索引中检索医学证据
type Service struct {
	name        string
	description string
	index       string
	field       string
	size        int
	client      *opensearch.Client
}

func NewService(meta service.ServiceMeta, opts *Options) (*Service, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: opts.Addresses,
		Username:  opts.Username,
		Password:  opts.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}

	s := &Service{
		name:        meta.Name,
		description: meta.Description,
		index:       opts.Index,
		field:       opts.Field,
		size:        opts.Size,
		client:      client,
	}
	if s.field == "" {
		s.field = defaultField
	}
	if s.size <= 0 {
		s.size = defaultSize
	}
	if s.description == "" {
		s.description = "Medical evidence search over index " + s.index
	}
	return s, nil
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Description() string {
	return s.description
}

func (s *Service) Type() service.ServiceType {
	return service.OpenSearch
}

func (s *Service) Health(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req := opensearchapi.PingRequest{}
	res, err := req.Do(healthCtx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch health check failed: %s", res.Status())
	}
	return nil
}

func (s *Service) Close() error {
	return nil
}

// Search 对配置字段执行 match 查询，命中文本以 " | " 连接
func (s *Service) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}

	body, err := json.Marshal(map[string]any{
		"size":    s.size,
		"_source": []string{s.field},
		"query": map[string]any{
			"match": map[string]any{s.field: query},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode opensearch query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return "", fmt.Errorf("opensearch search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", fmt.Errorf("opensearch error: %s", res.String())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read opensearch response: %w", err)
	}
	return joinHits(raw, s.field), nil
}

func joinHits(raw []byte, field string) string {
	var texts []string
	gjson.GetBytes(raw, "hits.hits").ForEach(func(_, hit gjson.Result) bool {
		if text := strings.TrimSpace(hit.Get("_source." + field).String()); text != "" {
			texts = append(texts, text)
		}
		return true
	})
	return strings.Join(texts, " | ")
}
