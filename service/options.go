package service

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// OptionsParser 解析器函数类型
type OptionsParser func(meta *toml.MetaData, primitive toml.Primitive) (any, error)

var optionsParsers = struct {
	mu      sync.RWMutex
	parsers map[ServiceType]OptionsParser
}{
	parsers: make(map[ServiceType]OptionsParser),
}

var validate = validator.New()

// RegisterOptionsParser 注册 Options 解析器
func RegisterOptionsParser(serviceType ServiceType, parser OptionsParser) {
	optionsParsers.mu.Lock()
	defer optionsParsers.mu.Unlock()
	optionsParsers.parsers[serviceType] = parser
}

// GetOptionsParser 获取解析器
func GetOptionsParser(serviceType ServiceType) (OptionsParser, bool) {
	optionsParsers.mu.RLock()
	defer optionsParsers.mu.RUnlock()
	parser, ok := optionsParsers.parsers[serviceType]
	return parser, ok
}

// ParseOptions 解析 TOML Primitive 到具体的配置结构并按 validate tag 校验
func ParseOptions[T any](meta *toml.MetaData, primitive toml.Primitive, typeName ServiceType) (*T, error) {
	var opts T
	if meta != nil {
		if err := meta.PrimitiveDecode(primitive, &opts); err != nil {
			return nil, fmt.Errorf("decode %s options: %w", typeName, err)
		}
	}
	if err := validate.Struct(&opts); err != nil {
		return nil, fmt.Errorf("validate %s options: %w", typeName, err)
	}
	return &opts, nil
}
