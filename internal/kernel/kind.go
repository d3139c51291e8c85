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

package kernel

import (
	"fmt"
	"strings"
)

// Resampling kernel family selector
type Kind int

const (
	Nearest Kind = iota
	Bilinear
	Cubic
	Lanczos4
)

var kindNames = [...]string{"nearest", "bilinear", "cubic", "lanczos"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// True for the kernels reading a padded 4x4 neighborhood
func (k Kind) FourTap() bool {
	return k == Cubic || k == Lanczos4
}

// Parses a kernel name. Accepts "mitchell" and "bicubic" as aliases for cubic
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "neighbour", "neighbor":
		return Nearest, nil
	case "bilinear", "linear":
		return Bilinear, nil
	case "cubic", "bicubic", "mitchell":
		return Cubic, nil
	case "lanczos":
		return Lanczos4, nil
	}
	return 0, fmt.Errorf("unknown kernel '%s'", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown kernel %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
