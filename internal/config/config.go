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

// Package config loads runtime settings for the server and the command line tool from TOML
package config

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Cache      CacheConfig      `toml:"cache"`
	Logging    LogConfig        `toml:"logging"`
	Processing ProcessingConfig `toml:"processing"`
}

type ServerConfig struct {
	Address       string   `toml:"address"`        // listen address, e.g. ":8080"
	CORSOrigins   []string `toml:"cors_origins"`   // allowed origins, empty allows all
	MaxUploadMB   int      `toml:"max_upload_mb"`  // largest accepted image upload
	RestrictPaths bool     `toml:"restrict_paths"` // confine load and save operators to the working directory
	Chroot        string   `toml:"chroot"`         // change filesystem root before serving, requires root
	Setuid        int      `toml:"setuid"`         // switch to this user id before serving, -1 keeps the current one
}

type CacheConfig struct {
	PreviewMB int `toml:"preview_mb"` // size of the encoded preview cache, 0 disables it
}

type LogConfig struct {
	Logfile    string `toml:"logfile"`
	MaxSize    int    `toml:"max_log_size"` // megabytes
	MaxAge     int    `toml:"max_log_age"`  // days
	MaxBackups int    `toml:"max_log_backups"`
}

type ProcessingConfig struct {
	MaxThreads     int     `toml:"max_threads"`     // 0 uses GOMAXPROCS
	MemoryFraction float64 `toml:"memory_fraction"` // share of physical memory a single result may use
}

// Configuration with all defaults filled in
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:       ":8080",
			MaxUploadMB:   256,
			RestrictPaths: true,
			Setuid:        -1,
		},
		Cache: CacheConfig{PreviewMB: 64},
		Logging: LogConfig{
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 3,
		},
		Processing: ProcessingConfig{
			MaxThreads:     0,
			MemoryFraction: 0.7,
		},
	}
}

// Loads a TOML file on top of the defaults. Relative log file names are resolved
// against the directory of the configuration file
func LoadFile(filename string) (*Config, error) {
	c := Default()
	if filename == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(filename, c)
	if err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in TOML config %s: %v", filename, undecoded)
	}
	if c.Logging.Logfile != "" && !filepath.IsAbs(c.Logging.Logfile) {
		c.Logging.Logfile = filepath.Join(filepath.Dir(filename), c.Logging.Logfile)
	}
	return c, c.Validate()
}

func (c *Config) Validate() error {
	if c.Processing.MaxThreads < 0 {
		return fmt.Errorf("max_threads must not be negative, got %d", c.Processing.MaxThreads)
	}
	if !(c.Processing.MemoryFraction >= 0 && c.Processing.MemoryFraction <= 1) {
		return fmt.Errorf("memory_fraction must be in [0,1], got %g", c.Processing.MemoryFraction)
	}
	if c.Cache.PreviewMB < 0 || c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("sizes must not be negative")
	}
	return nil
}

// Number of worker goroutines to use
func (c *Config) Threads() int {
	if c.Processing.MaxThreads > 0 {
		return c.Processing.MaxThreads
	}
	return runtime.GOMAXPROCS(0)
}
