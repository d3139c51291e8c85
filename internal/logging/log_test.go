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

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestTeeToFile(t *testing.T) {
	console := &bytes.Buffer{}
	prev := SetConsole(console)
	defer SetConsole(prev)

	fileName := filepath.Join(t.TempDir(), "test.log")
	if err := LogAlsoToFile(fileName, 1, 1, 1); err != nil {
		t.Fatal(err)
	}
	defer func() {
		mu.Lock()
		logFile = nil
		mu.Unlock()
	}()

	LogPrintf("%d: Loaded %s\n", 3, "a.png")
	LogPrintln("done")
	LogSync()

	want := "3: Loaded a.png\ndone\n"
	if console.String() != want {
		t.Errorf("console got %q; want %q", console.String(), want)
	}
	bs, err := os.ReadFile(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if string(bs) != want {
		t.Errorf("file got %q; want %q", string(bs), want)
	}
}

func TestConsoleOnly(t *testing.T) {
	console := &bytes.Buffer{}
	prev := SetConsole(console)
	defer SetConsole(prev)

	LogPrint("a", "b")
	if console.String() != "ab" {
		t.Errorf("got %q", console.String())
	}
}
