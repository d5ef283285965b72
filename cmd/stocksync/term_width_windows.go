//go:build windows

package main

import (
	"os"
	"strconv"

	"golang.org/x/sys/windows"
)

// detectTerminalWidth returns the console window's column count, or 0 when
// stdout is not a console and COLUMNS is unset.
func detectTerminalWidth() int {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(os.Stdout.Fd()), &info); err == nil {
		if w := int(info.Window.Right-info.Window.Left) + 1; w > 0 {
			return w
		}
	}
	n, err := strconv.Atoi(os.Getenv("COLUMNS"))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
