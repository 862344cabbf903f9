//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package config loads the settings of the viewer from a TOML file.
package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config of a dot plot.
type Config struct {
	// Plotting area in pixels
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
	// Bases between consecutive sequences of an axis
	Padding int `toml:"padding"`
	// Pixels between consecutive sequences of an axis
	GapPixels      float64 `toml:"gap_pixels"`
	ShowRepetitive bool    `toml:"show_repetitive"`
	// Number of queries loaded in parallel
	Concurrency int `toml:"concurrency"`
	// Draw overview alignments only, never loading alignment data
	OverviewOnly bool         `toml:"overview_only"`
	Annotations  []Annotation `toml:"annotation"`
}

// Annotation track file.
type Annotation struct {
	Path string `toml:"path"`
	Name string `toml:"name"`
	// "ref" or "query"
	Side string `toml:"side"`
}

func Default() Config {
	return Config{
		Width:       1000,
		Height:      1000,
		GapPixels:   2,
		Concurrency: 4,
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.Errorf("parsing %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return errors.Errorf("invalid plotting area %gx%g", c.Width, c.Height)
	case c.Padding < 0:
		return errors.Errorf("negative padding %d", c.Padding)
	case c.GapPixels < 0:
		return errors.Errorf("negative gap %g", c.GapPixels)
	case c.Concurrency < 1:
		return errors.Errorf("concurrency %d below 1", c.Concurrency)
	}
	for _, a := range c.Annotations {
		if a.Path == "" {
			return errors.New("annotation without path")
		}
		if a.Side != "ref" && a.Side != "query" {
			return errors.Errorf("annotation %s: side %q is neither ref nor query", a.Path, a.Side)
		}
	}
	return nil
}
