// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package lfsync

// RaceEnabled is true when the race detector is active.
// Tests use it to skip concurrent scenarios: atomix operations are
// invisible to the detector, so the element hand-off through a queue cell
// or a SeqLock word looks like an unsynchronized access.
const RaceEnabled = true
