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
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/cpuid"
)

//////////////////////////////////////////////////////////////////
// CPU-limited row operations. Parallelized across CPUs
//////////////////////////////////////////////////////////////////

// A row function. Processes rows [lower, upper) of some destination.
// Must only write to its own rows.
type RowFunction func(lower, upper int)

// Applies the given row function to all rows in [0, height). Splits rows into work packages
// and limits parallelism to maxThreads. Runs on the calling goroutine if maxThreads<=1.
// Returns once all rows have been processed
func ForEachRowBatch(height, bytesPerRow, maxThreads int, rf RowFunction) {
	if maxThreads <= 1 || height < 2 {
		rf(0, height)
		return
	}

	batchSize := RowsPerBatch(height, bytesPerRow, maxThreads)
	sem := make(chan bool, maxThreads)
	for lower := 0; lower < height; lower += batchSize {
		upper := lower + batchSize
		if upper > height {
			upper = height
		}

		sem <- true
		go func(lower, upper int) {
			rf(lower, upper)
			<-sem
		}(lower, upper)
	}

	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}
}

// Number of rows per work package. Aims for 8 packages per thread, but caps a
// package so its output rows fit into the L2 cache
func RowsPerBatch(height, bytesPerRow, maxThreads int) int {
	if maxThreads < 1 {
		maxThreads = 1
	}
	numBatches := 8 * maxThreads
	rows := (height + numBatches - 1) / numBatches
	if l2 := cpuid.CPU.Cache.L2; l2 > 0 && bytesPerRow > 0 {
		if fit := l2 / bytesPerRow; fit >= 1 && fit < rows {
			rows = fit
		}
	}
	if rows < 1 {
		rows = 1
	}
	return rows
}

// One-line CPU description for log output
func CPUDescription() string {
	l2 := "unknown"
	if cpuid.CPU.Cache.L2 > 0 {
		l2 = humanize.IBytes(uint64(cpuid.CPU.Cache.L2))
	}
	return fmt.Sprintf("%s with %d logical cores, L2 cache %s, AVX2 %v",
		cpuid.CPU.BrandName, cpuid.CPU.LogicalCores, l2, cpuid.CPU.AVX2())
}
