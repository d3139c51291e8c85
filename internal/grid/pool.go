// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package grid

import (
	"runtime"
	"sync"
)

// Pool of constant sized scratch arrays, for padded planes. Reduces memory allocation overhead
var poolFloat32 = struct {
	sync.RWMutex
	m map[int]*sync.Pool
}{m: make(map[int]*sync.Pool)}

// Pool of constant sized scratch arrays, for order statistics
var poolFloat64 = struct {
	sync.RWMutex
	m map[int]*sync.Pool
}{m: make(map[int]*sync.Pool)}

// Pool of constant sized scratch arrays, for partial histograms
var poolInt64 = struct {
	sync.RWMutex
	m map[int]*sync.Pool
}{m: make(map[int]*sync.Pool)}

// Clears all memory pools and triggers garbage collection
func ClearPools() {
	poolFloat32.Lock()
	poolFloat32.m = make(map[int]*sync.Pool)
	poolFloat32.Unlock()

	poolFloat64.Lock()
	poolFloat64.m = make(map[int]*sync.Pool)
	poolFloat64.Unlock()

	poolInt64.Lock()
	poolInt64.m = make(map[int]*sync.Pool)
	poolInt64.Unlock()

	runtime.GC()
}

// Returns a pool for []float32 arrays of the given size
func getSizedPoolFloat32(size int) *sync.Pool {
	poolFloat32.RLock()
	pool := poolFloat32.m[size]
	poolFloat32.RUnlock()
	if pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]float32, size)
			},
		}
		poolFloat32.Lock()
		if existing := poolFloat32.m[size]; existing != nil {
			pool = existing
		} else {
			poolFloat32.m[size] = pool
		}
		poolFloat32.Unlock()
	}
	return pool
}

// Retrieves an array of given size and type from pool. Contents are undefined
func GetArrayOfFloat32FromPool(size int) []float32 {
	pool := getSizedPoolFloat32(size)
	return pool.Get().([]float32)
}

// Returns an array of given size and type to the pool
func PutArrayOfFloat32IntoPool(arr []float32) {
	pool := getSizedPoolFloat32(cap(arr))
	pool.Put(arr[:cap(arr)])
}

// Returns a pool for []float64 arrays of the given size
func getSizedPoolFloat64(size int) *sync.Pool {
	poolFloat64.RLock()
	pool := poolFloat64.m[size]
	poolFloat64.RUnlock()
	if pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]float64, size)
			},
		}
		poolFloat64.Lock()
		if existing := poolFloat64.m[size]; existing != nil {
			pool = existing
		} else {
			poolFloat64.m[size] = pool
		}
		poolFloat64.Unlock()
	}
	return pool
}

// Retrieves an array of given size and type from pool. Contents are undefined
func GetArrayOfFloat64FromPool(size int) []float64 {
	pool := getSizedPoolFloat64(size)
	return pool.Get().([]float64)
}

// Returns an array of given size and type to the pool
func PutArrayOfFloat64IntoPool(arr []float64) {
	pool := getSizedPoolFloat64(cap(arr))
	pool.Put(arr[:cap(arr)])
}

// Returns a pool for []int64 arrays of the given size
func getSizedPoolInt64(size int) *sync.Pool {
	poolInt64.RLock()
	pool := poolInt64.m[size]
	poolInt64.RUnlock()
	if pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]int64, size)
			},
		}
		poolInt64.Lock()
		if existing := poolInt64.m[size]; existing != nil {
			pool = existing
		} else {
			poolInt64.m[size] = pool
		}
		poolInt64.Unlock()
	}
	return pool
}

// Retrieves an array of given size and type from pool. Contents are undefined
func GetArrayOfInt64FromPool(size int) []int64 {
	pool := getSizedPoolInt64(size)
	return pool.Get().([]int64)
}

// Returns an array of given size and type to the pool
func PutArrayOfInt64IntoPool(arr []int64) {
	pool := getSizedPoolInt64(cap(arr))
	pool.Put(arr[:cap(arr)])
}
