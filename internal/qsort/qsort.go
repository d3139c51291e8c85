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

// Package qsort provides in-place quickselect on numeric slices.
// Slices must not contain IEEE NaN
package qsort

// Partitions an array of float64 with the middle pivot element, and returns the pivot index.
// Values less than the pivot are moved left of the pivot, those greater are moved right
func QPartitionFloat64(a []float64) int {
	left, right := 0, len(a)-1
	mid := (left + right) >> 1
	pivot := a[mid]
	l := left - 1
	r := right + 1
	for {
		for {
			l++
			if a[l] >= pivot {
				break
			}
		}
		for {
			r--
			if a[r] <= pivot {
				break
			}
		}
		if l >= r {
			return r
		}
		a[l], a[r] = a[r], a[l]
	}
}

// Select kth lowest element from an array of float64, with k starting at 1.
// Partially reorders the array
func QSelectFloat64(a []float64, k int) float64 {
	left, right := 0, len(a)-1
	for left < right {
		index := left + QPartitionFloat64(a[left:right+1])

		offset := index - left + 1
		if k <= offset {
			right = index
		} else {
			left = index + 1
			k = k - offset
		}
	}
	return a[left]
}

// Select the kth and the (k+1)th lowest elements from an array of float64, with k starting at 1.
// The second value equals the first if k is the last position. Partially reorders the array
func QSelectPairFloat64(a []float64, k int) (lo, hi float64) {
	lo = QSelectFloat64(a, k)
	if k >= len(a) {
		return lo, lo
	}
	// after selection, all elements right of position k-1 are >= lo
	hi = a[k]
	for _, v := range a[k+1:] {
		if v < hi {
			hi = v
		}
	}
	return lo, hi
}
