// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gliderlabs/ssh"

	"github.com/usbarmory/go-fwmem/shell"
)

func handleSession(s ssh.Session) {
	log.Printf("ssh session from %s@%s", s.User(), s.RemoteAddr())
	defer s.Close()

	iface := &shell.Interface{
		Banner:     Banner,
		ReadWriter: s,
	}

	if cmd := s.RawCommand(); len(cmd) > 0 {
		if err := iface.Exec(strings.NewReader(cmd), s); err != nil {
			fmt.Fprintf(s.Stderr(), "command error, %v\n", err)
			s.Exit(1)
			return
		}

		s.Exit(0)
		return
	}

	_, _, iface.VT100 = s.Pty()
	iface.Start()
}

// StartSSHServer serves the console over SSH on the argument address, when
// authorizedKeys is not empty only listed keys are accepted.
func StartSSHServer(addr string, authorizedKeys string) (err error) {
	srv := &ssh.Server{
		Addr:    addr,
		Handler: handleSession,
	}

	if len(authorizedKeys) > 0 {
		var keys []ssh.PublicKey

		buf, err := os.ReadFile(authorizedKeys)

		if err != nil {
			return err
		}

		for len(bytes.TrimSpace(buf)) > 0 {
			key, _, _, rest, err := ssh.ParseAuthorizedKey(buf)

			if err != nil {
				return fmt.Errorf("invalid authorized key, %v", err)
			}

			keys = append(keys, key)
			buf = rest
		}

		srv.PublicKeyHandler = func(_ ssh.Context, key ssh.PublicKey) bool {
			for _, k := range keys {
				if ssh.KeysEqual(key, k) {
					return true
				}
			}

			return false
		}
	}

	log.Printf("starting ssh server on %s", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("ssh server error, %v", err)
		}
	}()

	return
}
