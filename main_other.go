//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// x/hotkey needs the main thread on darwin and windows.
func main() {
	code := 0
	mainthread.Init(func() { code = run() })
	os.Exit(code)
}
