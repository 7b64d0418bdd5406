// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build debug

package cmd

import (
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/arl/statsviz"
)

func init() {
	statsviz.RegisterDefault()

	debugServer = func(addr string) {
		log.Printf("debug server listening on http://%s/debug/statsviz", addr)

		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Printf("debug server error, %v", err)
		}
	}
}
