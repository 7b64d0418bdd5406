// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"golang.org/x/term"

	"github.com/usbarmory/go-fwmem/cmd"
	"github.com/usbarmory/go-fwmem/shell"
)

var (
	logPath        string
	script         string
	sshAddr        string
	authorizedKeys string
	debugAddr      string
)

func init() {
	log.SetFlags(0)

	cmd.Banner = fmt.Sprintf("go-fwmem • %s/%s (%s)",
		runtime.GOOS, runtime.GOARCH, runtime.Version())

	flag.StringVar(&logPath, "log", "", "log file path")
	flag.StringVar(&script, "c", "", "run commands from file and exit")
	flag.StringVar(&sshAddr, "ssh", "", "serve console over SSH on address")
	flag.StringVar(&authorizedKeys, "authorized-keys", "", "SSH authorized keys file")
	flag.StringVar(&debugAddr, "debug", "", "serve runtime statistics on address (debug builds)")
	flag.Uint64Var(&cmd.PagesStart, "pages-start", cmd.PagesStart, "start of page allocator range")
	flag.Uint64Var(&cmd.PagesEnd, "pages-end", cmd.PagesEnd, "end of page allocator range")
}

type stdio struct {
	io.Reader
	io.Writer
}

func main() {
	flag.Parse()

	console := &shell.Interface{
		Banner:     cmd.Banner,
		ReadWriter: stdio{os.Stdin, os.Stdout},
	}

	if len(logPath) > 0 {
		logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)

		if err != nil {
			log.Fatalf("could not open log file, %v", err)
		}
		defer logFile.Close()

		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
		console.Log = logFile
	}

	// apply flags to console state
	cmd.Reset()

	if len(debugAddr) > 0 && !cmd.StartDebugServer(debugAddr) {
		log.Printf("warning: debug server requires a debug build")
	}

	if len(script) > 0 {
		f, err := os.Open(script)

		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()

		if err = console.Exec(f, os.Stdout); err != nil {
			log.Fatal(err)
		}

		return
	}

	if len(sshAddr) > 0 {
		if err := cmd.StartSSHServer(sshAddr, authorizedKeys); err != nil {
			log.Fatalf("could not start ssh server, %v", err)
		}
	}

	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)

		if err != nil {
			log.Fatalf("could not set terminal mode, %v", err)
		}
		defer term.Restore(fd, oldState)

		console.VT100 = true
	}

	console.Start()
}
