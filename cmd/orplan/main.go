// orplan 手术间排班命令行工具
package main

import (
	"os"

	"github.com/paiban/orplan/cmd/orplan/commands"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	commands.SetVersionInfo(Version, GitCommit, BuildTime)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
