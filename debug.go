// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build lfsync_debug

package lfsync

// debugChecks enables precondition assertions.
const debugChecks = true

func assert(cond bool, msg string) {
	if !cond {
		panic("lfsync: " + msg)
	}
}
