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
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"strings"

	"golang.org/x/image/tiff"
)

const JPEGQuality = 95

// Returns the output format for a file name suffix, or an error for unknown suffixes
func FormatFromFileName(fileName string) (string, error) {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	case ".tif", ".tiff":
		return "tiff", nil
	}
	return "", fmt.Errorf("unknown suffix for %s", fileName)
}

// Writes the grid to a file, picking the format from the file name suffix
func (g *Grid) WriteFile(fileName string) error {
	format, err := FormatFromFileName(fileName)
	if err != nil {
		return err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err = g.Encode(writer, format); err != nil {
		return err
	}
	return writer.Flush()
}

// Encodes the grid in the given format, one of png, jpeg or tiff.
// JPEG output is 8-bit; PNG and TIFF keep 16-bit samples
func (g *Grid) Encode(writer io.Writer, format string) error {
	img := g.ToImage()
	switch format {
	case "png":
		return png.Encode(writer, img)
	case "jpeg", "jpg":
		return jpeg.Encode(writer, img, &jpeg.Options{Quality: JPEGQuality})
	case "tiff", "tif":
		// horizontal differencing only for 8-bit samples
		return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: g.Depth == Depth8})
	}
	return errors.New("unknown output format " + format)
}

// MIME content type for an output format
func ContentType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg", "jpg":
		return "image/jpeg"
	case "tiff", "tif":
		return "image/tiff"
	}
	return "application/octet-stream"
}
