package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/logger"
	"github.com/paiban/orplan/pkg/model"
)

// LoadEngineConfig 从 YAML 文件加载引擎配置
// 未出现在文件中的权重保留默认值；路径为空时返回默认配置
func LoadEngineConfig(path string) (*model.EngineConfig, error) {
	if path == "" {
		return model.DefaultEngineConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "读取引擎配置失败").WithField("path", path)
	}
	return ParseEngineConfig(data)
}

// ParseEngineConfig 解析 YAML 格式的引擎配置
func ParseEngineConfig(data []byte) (*model.EngineConfig, error) {
	cfg := model.DefaultEngineConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "引擎配置格式错误")
	}
	if err := ValidateEngineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateEngineConfig 校验引擎配置
func ValidateEngineConfig(cfg *model.EngineConfig) error {
	ve := &apperrors.ValidationErrors{}

	if cfg.MaxIterations < 0 {
		ve.Add("max_iterations", "不能为负数")
	}
	for name, v := range cfg.Weights.Named() {
		if v < 0 {
			ve.Add("weights."+name, "权重不能为负数，扣分项以正数配置")
		}
	}

	ids := make(map[string]bool)
	for i, r := range cfg.Rules {
		field := fmt.Sprintf("special_rules[%d]", i)
		if r.Trigger == "" {
			ve.Add(field+".trigger", "不能为空")
		}
		if r.RequiredSkill == "" {
			ve.Add(field+".required_skill", "不能为空")
		}
		if r.MinLevel != "" && r.MinLevel != model.LevelNone && model.ParseLevel(string(r.MinLevel)) == model.LevelNone {
			ve.Add(field+".min_level", fmt.Sprintf("未知等级 %q", r.MinLevel))
		}
		if r.ID != "" {
			if ids[r.ID] {
				ve.Add(field+".id", fmt.Sprintf("规则 %s 重复", r.ID))
			}
			ids[r.ID] = true
		}
	}

	for i, o := range cfg.SpecialtyOverrides {
		if o.Tag == "" || o.Department == "" {
			ve.Add(fmt.Sprintf("specialty_overrides[%d]", i), "tag 与 department 不能为空")
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// OverlayEngineConfig 以 base 为基础按字段叠加 JSON 配置并校验
// raw 为空或 null 时返回 base 本身；base 不会被修改
func OverlayEngineConfig(base *model.EngineConfig, raw []byte) (*model.EngineConfig, error) {
	if base == nil {
		base = model.DefaultEngineConfig()
	}
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return base, nil
	}

	cfg := *base
	cfg.Rules = append([]model.SpecialRule(nil), base.Rules...)
	cfg.SpecialtyOverrides = append([]model.SpecialtyOverride(nil), base.SpecialtyOverrides...)
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "引擎配置格式错误").WithDetails(err.Error())
	}
	if err := ValidateEngineConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEngine 加载服务使用的引擎配置
// 配置文件不存在时使用默认值；MaxIterations 大于 0 时覆盖文件中的轮数上限
func (c *OptimizerConfig) LoadEngine() (*model.EngineConfig, error) {
	cfg, err := LoadEngineConfig(c.EngineConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("path", c.EngineConfigPath).Msg("引擎配置文件不存在，使用默认配置")
		cfg, err = model.DefaultEngineConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	if c.MaxIterations > 0 {
		cfg.MaxIterations = c.MaxIterations
	}
	return cfg, nil
}
