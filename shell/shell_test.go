// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package shell

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func init() {
	Add(Cmd{
		Name:    "echo",
		Args:    1,
		Pattern: regexp.MustCompile(`^echo (.*)$`),
		Syntax:  "<text>",
		Help:    "echo text",
		Fn: func(_ *Interface, arg []string) (string, error) {
			return arg[0], nil
		},
	})

	Add(Cmd{
		Name: "quit",
		Help: "stop",
		Fn: func(_ *Interface, _ []string) (string, error) {
			return "", io.EOF
		},
	})
}

func TestHelp(t *testing.T) {
	help, err := (&Interface{}).Help(nil)
	require.NoError(t, err)
	require.Contains(t, help, "echo")
	require.Contains(t, help, "# this help")
	require.Less(t, strings.Index(help, "echo"), strings.Index(help, "help"))
}

func TestExec(t *testing.T) {
	var out bytes.Buffer

	script := "# comment\necho hello\n\n  echo world  \nquit\necho unreached\n"

	require.NoError(t, (&Interface{}).Exec(strings.NewReader(script), &out))
	require.Equal(t, "hello\nworld\n", out.String())
}

func TestExecUnknown(t *testing.T) {
	var out bytes.Buffer

	err := (&Interface{}).Exec(strings.NewReader("echo a\nbogus\n"), &out)
	require.ErrorContains(t, err, "line 2")
	require.Equal(t, "a\n", out.String())
}
