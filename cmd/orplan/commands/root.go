// Package commands 实现 orplan 命令行
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiban/orplan/internal/config"
	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/logger"
	"github.com/paiban/orplan/pkg/model"
)

// globalOptions 全局参数
type globalOptions struct {
	configPath string
	verbose    bool
}

var rootCmd = newRootCmd()

// newRootCmd 构建完整命令树
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "orplan",
		Short: "手术间护理排班优化工具",
		Long: `orplan 读取单日排班快照 (JSON)，按专科资质规则与评分权重优化人员分配。

  orplan optimize --plan day.json
  orplan score --plan day.json
  orplan validate --plan day.json
  orplan qualify --plan day.json --staff n01 --room OP3
  orplan batch mon.json tue.json wed.json`,
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := logger.DefaultConfig()
			cfg.Level = "warn"
			if opts.verbose {
				cfg.Level = "debug"
			}
			cfg.Output = "stderr"
			logger.Init(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "引擎配置文件 (YAML)，缺省使用内置默认值")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")

	cmd.AddCommand(
		newOptimizeCmd(opts),
		newBatchCmd(opts),
		newScoreCmd(opts),
		newValidateCmd(opts),
		newQualifyCmd(opts),
	)
	return cmd
}

// Execute 执行根命令
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

// SetVersionInfo 设置版本信息
func SetVersionInfo(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// loadPlan 读取排班快照，路径为 "-" 时读取标准输入
func loadPlan(cmd *cobra.Command, path string) (*model.DayPlan, error) {
	if path == "" {
		return nil, apperrors.InvalidInput("plan", "必须指定排班文件")
	}

	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "读取排班文件失败").WithField("path", path)
		}
		defer f.Close()
		r = f
	}

	var plan model.DayPlan
	if err := json.NewDecoder(r).Decode(&plan); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "排班文件格式错误").WithField("path", path)
	}
	plan.Normalize()
	return &plan, nil
}

func (o *globalOptions) loadEngine() (*model.EngineConfig, error) {
	return config.LoadEngineConfig(o.configPath)
}

// writeJSON 写出缩进 JSON，path 为空时写到命令输出
func writeJSON(cmd *cobra.Command, path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "写入结果文件失败").WithField("path", path)
	}
	return nil
}
