package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadEnv 加载 .env 文件到环境变量，文件不存在时忽略
// 未指定文件时加载当前目录下的 .env
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("⚠️ [配置] 加载 %s 失败: %v", f, err)
		}
	}
}

// LoadEngineConfig 加载引擎配置（对外导出）
// 文件中的 ${VAR} 按环境变量展开；文件不存在时返回默认配置
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("⚠️ [配置] 配置文件 %s 不存在，使用默认配置", path)
			return DefaultEngineConfig(), nil
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return ParseEngineConfig(data)
}

// ParseEngineConfig 解析引擎配置内容
func ParseEngineConfig(data []byte) (*EngineConfig, error) {
	var cfg EngineConfig
	if err := decodeStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析引擎配置失败: %w", err)
	}
	cfg.ApplyDefaults()
	if err := ValidateFrameworkConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadPipelineFile 加载并校验一个Pipeline定义文件（对外导出）
func LoadPipelineFile(path string) (*PipelineDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取Pipeline定义失败: %w", err)
	}
	def, err := ParsePipelineDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// ParsePipelineDefinition 解析并校验Pipeline定义内容
func ParsePipelineDefinition(data []byte) (*PipelineDefinition, error) {
	var def PipelineDefinition
	if err := decodeStrict(data, &def); err != nil {
		return nil, fmt.Errorf("解析Pipeline定义失败: %w", err)
	}
	if err := ValidatePipelineDefinition(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadPipelineDir 加载目录下全部 .yaml/.yml 定义，按文件名排序
// 名称重复时返回错误
func LoadPipelineDir(dir string) ([]*PipelineDefinition, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	defs := make([]*PipelineDefinition, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, f := range files {
		def, err := LoadPipelineFile(f)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[def.Name]; ok {
			return nil, fmt.Errorf("Pipeline名称 %s 在 %s 和 %s 中重复", def.Name, prev, f)
		}
		seen[def.Name] = f
		defs = append(defs, def)
	}
	return defs, nil
}

// decodeStrict 展开环境变量后解码，未知字段报错
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
