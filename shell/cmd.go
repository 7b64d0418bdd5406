// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package shell

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"text/tabwriter"
)

// CmdFn represents a command handler.
type CmdFn func(iface *Interface, arg []string) (res string, err error)

// Cmd represents a shell command.
type Cmd struct {
	// Name is the command name, matched against the whole line when no
	// Pattern is set
	Name string
	// Args is the number of Pattern submatches
	Args int
	// Pattern is the command line regular expression
	Pattern *regexp.Regexp
	// Syntax is the command arguments syntax
	Syntax string
	// Help is the command description
	Help string
	// Fn is the command handler
	Fn CmdFn
}

var (
	mu   sync.RWMutex
	cmds = make(map[string]*Cmd)
)

// Add registers a terminal interface command.
func Add(cmd Cmd) {
	mu.Lock()
	defer mu.Unlock()

	cmds[cmd.Name] = &cmd
}

// sorted returns all registered commands sorted by name.
func sorted() (list []*Cmd) {
	mu.RLock()
	defer mu.RUnlock()

	for _, cmd := range cmds {
		list = append(list, cmd)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})

	return
}

// Help returns a formatted list of all registered commands.
func (iface *Interface) Help(_ []string) (string, error) {
	var help bytes.Buffer

	t := tabwriter.NewWriter(&help, 16, 8, 0, '\t', tabwriter.TabIndent)

	for _, cmd := range sorted() {
		fmt.Fprintf(t, "%s\t%s\t # %s\n", cmd.Name, cmd.Syntax, cmd.Help)
	}

	t.Flush()

	return help.String(), nil
}

func helpCmd(iface *Interface, arg []string) (string, error) {
	return iface.Help(arg)
}

func init() {
	Add(Cmd{
		Name: "help",
		Help: "this help",
		Fn:   helpCmd,
	})
}
