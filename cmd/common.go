// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cmd implements the diagnostic console commands for page table
// captures and runtime memory buckets.
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"time"

	"github.com/hako/durafmt"

	"github.com/usbarmory/go-fwmem/bucket"
	"github.com/usbarmory/go-fwmem/shell"
)

// Banner represents the console welcome message
var Banner string

var started = time.Now()

func init() {
	shell.Add(shell.Cmd{
		Name: "build",
		Help: "build information",
		Fn:   buildInfoCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "exit, quit",
		Args:    1,
		Pattern: regexp.MustCompile(`^(exit|quit)$`),
		Help:    "close session",
		Fn:      exitCmd,
	})

	shell.Add(shell.Cmd{
		Name: "stack",
		Help: "goroutine stack trace (current)",
		Fn:   stackCmd,
	})

	shell.Add(shell.Cmd{
		Name: "stackall",
		Help: "goroutine stack trace (all)",
		Fn:   stackallCmd,
	})

	shell.Add(shell.Cmd{
		Name: "uptime",
		Help: "show how long the console has been running",
		Fn:   uptimeCmd,
	})
}

func buildInfoCmd(_ *shell.Interface, _ []string) (string, error) {
	if bi, ok := debug.ReadBuildInfo(); ok {
		return bi.String(), nil
	}

	return "", nil
}

func exitCmd(_ *shell.Interface, _ []string) (string, error) {
	return fmt.Sprintf("Goodbye from %s/%s", runtime.GOOS, runtime.GOARCH), io.EOF
}

func stackCmd(_ *shell.Interface, _ []string) (string, error) {
	return string(debug.Stack()), nil
}

func stackallCmd(_ *shell.Interface, _ []string) (string, error) {
	buf := new(bytes.Buffer)
	pprof.Lookup("goroutine").WriteTo(buf, 1)

	return buf.String(), nil
}

func uptimeCmd(_ *shell.Interface, _ []string) (string, error) {
	return durafmt.Parse(time.Since(started)).LimitFirstN(3).String(), nil
}

// Config represents the default runtime memory bucket sizes
var Config = bucket.DefaultConfig

// PagesStart and PagesEnd delimit the physical range serving page
// allocations for memory types not held in buckets.
var (
	PagesStart uint64 = 0x10000000
	PagesEnd   uint64 = 0x40000000
)

var debugServer func(addr string)

// pageAllocator, when set by the build, returns the allocator serving the
// argument physical range, otherwise a sequential [bucket.Region] is used.
var pageAllocator func(start uint64, end uint64) (bucket.PageAllocator, error)

// Reset discards the console bucket and hand-off state, applying the current
// Config.
func Reset() {
	console.Lock()
	defer console.Unlock()

	console.reset()
}

// StartDebugServer serves the runtime statistics dashboard on the argument
// address, it returns false when not supported by the build.
func StartDebugServer(addr string) bool {
	if debugServer == nil {
		return false
	}

	go debugServer(addr)

	return true
}
