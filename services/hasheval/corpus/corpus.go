// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package corpus discovers the reference images and attack variants of an
// evaluation corpus.
//
// A corpus lives under one root directory:
//
//	<root>/originals/<image>.jpg           reference images
//	<root>/attacks/<attack>/<image>.jpg    one directory per attack
//	<root>/attacks-extra/<attack>/...      optional "unfair" attacks
//
// Every attack directory holds a derivative of each original under the
// same file name. Listings are sorted by name so that image and attack
// indices are stable between runs.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/hashprobe/pkg/logging"
)

// Layout names the directories of a corpus.
type Layout struct {
	// Root is the corpus base directory.
	Root string `yaml:"root" validate:"required"`

	// Originals is the reference image directory, relative to Root.
	Originals string `yaml:"originals" validate:"required"`

	// Attacks is the attack directory, relative to Root.
	Attacks string `yaml:"attacks" validate:"required"`

	// ExtraAttacks is the optional extra attack directory, relative to Root.
	// A missing directory is not an error.
	ExtraAttacks string `yaml:"extra_attacks"`

	// Extensions are the recognized image extensions, matched
	// case-insensitively. Default: [".jpg"]
	Extensions []string `yaml:"extensions" validate:"required,min=1,dive,required"`
}

// DefaultLayout returns the layout used by the sample corpus.
func DefaultLayout(root string) Layout {
	return Layout{
		Root:         root,
		Originals:    "originals",
		Attacks:      "attacks",
		ExtraAttacks: "attacks-extra",
		Extensions:   []string{".jpg"},
	}
}

// Attack is one content-preserving transformation of the corpus.
type Attack struct {
	// Name is the attack directory name.
	Name string

	// Dir is the attack directory path.
	Dir string

	// Extra is true for attacks from the extra attack directory.
	Extra bool
}

// Corpus is the ordered result of discovery.
//
// A Corpus is immutable after Discover returns and may be shared by
// concurrent sweeps.
type Corpus struct {
	// OriginalsDir is the directory holding the reference images.
	OriginalsDir string

	// Images are the reference image file names, sorted.
	Images []string

	// Attacks are the regular attacks, sorted by name.
	Attacks []Attack

	// ExtraAttacks are the extra attacks, sorted by name. May be empty.
	ExtraAttacks []Attack
}

// Discover lists the corpus described by layout.
//
// Returns a *DiscoveryError wrapping ErrNoImages when no image matches
// the extensions and ErrNoAttacks when the attack directory holds no
// visible subdirectory. The extra attack directory is optional.
func Discover(layout Layout, logger *logging.Logger) (*Corpus, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if layout.Root == "" || layout.Originals == "" || layout.Attacks == "" {
		return nil, fmt.Errorf("%w: root, originals and attacks are required", ErrInvalidLayout)
	}
	if len(layout.Extensions) == 0 {
		return nil, fmt.Errorf("%w: at least one image extension is required", ErrInvalidLayout)
	}

	originals := filepath.Join(layout.Root, layout.Originals)
	images, err := ListImages(originals, layout.Extensions)
	if err != nil {
		return nil, &DiscoveryError{Dir: originals, Err: err}
	}
	if len(images) == 0 {
		return nil, &DiscoveryError{Dir: originals, Err: ErrNoImages}
	}

	attacksDir := filepath.Join(layout.Root, layout.Attacks)
	attacks, err := listAttacks(attacksDir, false)
	if err != nil {
		return nil, &DiscoveryError{Dir: attacksDir, Err: err}
	}
	if len(attacks) == 0 {
		return nil, &DiscoveryError{Dir: attacksDir, Err: ErrNoAttacks}
	}

	var extra []Attack
	if layout.ExtraAttacks != "" {
		extraDir := filepath.Join(layout.Root, layout.ExtraAttacks)
		extra, err = listAttacks(extraDir, true)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Debug("extra attack directory not found", "dir", extraDir)
		case err != nil:
			return nil, &DiscoveryError{Dir: extraDir, Err: err}
		}
	}

	logger.Info("corpus discovered",
		"originals", originals,
		"images", len(images),
		"attacks", len(attacks),
		"extra_attacks", len(extra),
	)

	return &Corpus{
		OriginalsDir: originals,
		Images:       images,
		Attacks:      attacks,
		ExtraAttacks: extra,
	}, nil
}

// AttackSet returns the attacks of the attacked sweep: the regular attacks
// followed by the extra attacks when includeExtra is set.
//
// The returned slice is a fresh copy.
func (c *Corpus) AttackSet(includeExtra bool) []Attack {
	set := make([]Attack, 0, len(c.Attacks)+len(c.ExtraAttacks))
	set = append(set, c.Attacks...)
	if includeExtra {
		set = append(set, c.ExtraAttacks...)
	}
	return set
}

// ImagePath returns the path of reference image i.
func (c *Corpus) ImagePath(i int) string {
	return filepath.Join(c.OriginalsDir, c.Images[i])
}

// AttackPath returns the path of image i under attack a.
func (c *Corpus) AttackPath(a Attack, i int) string {
	return filepath.Join(a.Dir, c.Images[i])
}

// ListImages returns the regular files in dir whose extension matches one
// of exts (case-insensitive), sorted by name. Hidden files are skipped.
func ListImages(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isHidden(name) {
			continue
		}
		if hasExtension(name, exts) {
			images = append(images, name)
		}
	}
	return images, nil
}

// ListAttacks returns the non-hidden subdirectories of dir, sorted by name.
func ListAttacks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !isHidden(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func listAttacks(dir string, extra bool) ([]Attack, error) {
	names, err := ListAttacks(dir)
	if err != nil {
		return nil, err
	}
	attacks := make([]Attack, len(names))
	for i, name := range names {
		attacks[i] = Attack{Name: name, Dir: filepath.Join(dir, name), Extra: extra}
	}
	return attacks, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func hasExtension(name string, exts []string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return false
	}
	for _, want := range exts {
		if strings.EqualFold(ext, strings.TrimPrefix(want, ".")) {
			return true
		}
	}
	return false
}
