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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	fileName := filepath.Join(t.TempDir(), "imgedit.toml")
	if err := os.WriteFile(fileName, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
	return fileName
}

func TestDefaultsForMissingKeys(t *testing.T) {
	fileName := writeConfig(t, `
[server]
address = "127.0.0.1:9000"
cors_origins = ["http://localhost:3000"]

[logging]
logfile = "imgedit.log"
`)
	c, err := LoadFile(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Address != "127.0.0.1:9000" || len(c.Server.CORSOrigins) != 1 {
		t.Errorf("server section %+v", c.Server)
	}
	if c.Server.MaxUploadMB != 256 || !c.Server.RestrictPaths {
		t.Errorf("server defaults lost: %+v", c.Server)
	}
	if c.Cache.PreviewMB != 64 || c.Processing.MemoryFraction != 0.7 || c.Logging.MaxSize != 100 {
		t.Errorf("defaults not applied: %+v", c)
	}
	if want := filepath.Join(filepath.Dir(fileName), "imgedit.log"); c.Logging.Logfile != want {
		t.Errorf("logfile %s; want %s", c.Logging.Logfile, want)
	}
}

func TestEmptyFileName(t *testing.T) {
	c, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Address != ":8080" || c.Threads() < 1 {
		t.Errorf("unexpected defaults %+v", c)
	}
}

func TestInvalidConfigs(t *testing.T) {
	for _, content := range []string{
		"[server]\naddres = \":1\"\n",
		"[processing]\nmemory_fraction = 1.5\n",
		"[processing]\nmax_threads = -2\n",
		"[cache\n",
	} {
		if _, err := LoadFile(writeConfig(t, content)); err == nil {
			t.Errorf("accepted config %q", content)
		}
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("accepted missing file")
	}
}

func TestThreads(t *testing.T) {
	c := Default()
	c.Processing.MaxThreads = 3
	if c.Threads() != 3 {
		t.Errorf("threads %d; want 3", c.Threads())
	}
}
