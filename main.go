package main

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/cubix/cmd"
	"github.com/mezonai/cubix/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("ENGINE CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
