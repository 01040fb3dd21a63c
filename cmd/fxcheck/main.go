// Package main validates effect asset files.
//
// Usage:
//
//	go run ./cmd/fxcheck [--dir <path>] [effect ...]
//
// Without --dir the embedded sample effects are checked. Without effect ids
// every *.yaml file in the source is checked. The exit status is 1 when any
// effect fails to load or has a module block that cannot be built.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/decker502/particlefx/data"
	"github.com/decker502/particlefx/internal/particle"
)

var (
	dirFlag     = flag.String("dir", "", "Directory of effect YAML files (default: embedded samples)")
	verboseFlag = flag.Bool("verbose", false, "Enable verbose logging (default off)")
)

func main() {
	flag.Parse()
	if !*verboseFlag {
		log.SetOutput(io.Discard)
	}

	src := particle.NewFSSource(data.Effects, "effects")
	if *dirFlag != "" {
		src = particle.NewFSSource(os.DirFS(*dirFlag), "")
	}

	ids := flag.Args()
	if len(ids) == 0 {
		var err error
		ids, err = src.List()
		if err != nil {
			fmt.Printf("❌ 读取特效目录失败: %v\n", err)
			os.Exit(1)
		}
	}
	if len(ids) == 0 {
		fmt.Println("❌ 没有找到特效文件")
		os.Exit(1)
	}

	failed := checkAll(os.Stdout, src, ids)
	if failed > 0 {
		fmt.Printf("❌ %d/%d 个特效有错误\n", failed, len(ids))
		os.Exit(1)
	}
	fmt.Printf("✅ 全部 %d 个特效有效\n", len(ids))
}
