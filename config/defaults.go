package config

import _ "embed"

// DefaultConfigYAML 编译进二进制的默认配置
//
//go:embed default.yaml
var DefaultConfigYAML []byte
