// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import "unsafe"

// Padding returns the number of bytes needed after a structure of the
// given size so that its total size is a multiple of [CacheLineSize].
// It returns 0 when size is already a multiple.
//
//	Padding(8)   // 56 with 64-byte lines
//	Padding(64)  // 0
//	Padding(100) // 28
func Padding(size uintptr) uintptr {
	return (CacheLineSize - size%CacheLineSize) % CacheLineSize
}

// pad is cache line padding to prevent false sharing.
type pad [CacheLineSize]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [CacheLineSize - 8]byte

// counterPad fills the rest of the line after a counter word.
type counterPad [(CacheLineSize - unsafe.Sizeof(uint64(0))%CacheLineSize) % CacheLineSize]byte

// noCopy may be added to structs which must not be copied after first use.
// go vet's copylocks check reports copies of structs containing it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
