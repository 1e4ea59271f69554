// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build lfsync_cacheline128

package lfsync

// CacheLineSize is the cache line size in bytes assumed by every padded
// structure in this package.
const CacheLineSize = 128
