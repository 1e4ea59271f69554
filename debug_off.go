// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !lfsync_debug

package lfsync

// debugChecks is false in regular builds; assertions compile away.
const debugChecks = false

func assert(bool, string) {}
