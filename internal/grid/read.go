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
	"bufio"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Reads and decodes the image file with the given name into a grid.
// Decompresses gzip if a .gz or .gzip suffix is present
func NewGridFromFile(fileName string, id int, logWriter io.Writer) (*Grid, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	lExt := strings.ToLower(path.Ext(fileName))
	if lExt == ".gz" || lExt == ".gzip" {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	g, format, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%d: decoding %s: %w", id, fileName, err)
	}
	g.ID, g.FileName = id, fileName
	if logWriter != nil {
		fmt.Fprintf(logWriter, "%d: Decoded %s image %s from %s\n", id, format, g.DimensionsToString(), fileName)
	}
	return g, nil
}

// Decodes an image stream with any registered codec and converts it into a grid.
// Returns the codec name as well
func Decode(r io.Reader) (g *Grid, format string, err error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", err
	}
	g, err = NewGridFromImage(img)
	return g, format, err
}
