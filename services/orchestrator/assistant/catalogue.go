// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assistant

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// defaultOptions is the built-in catalogue used when no YAML file is
// configured or the file cannot be read. Labels match the coaching
// assistants' production option set.
var defaultOptions = []InputOption{
	{Value: "Bir arkadaşım", Text: "Bir arkadaşım", SK: "person-friend"},
	{Value: "İş arkadaşım", Text: "İş arkadaşım", SK: "person-colleague"},
	{Value: "Yöneticim", Text: "Yöneticim", SK: "person-manager"},
	{Value: "Müşteri", Text: "Müşteri", SK: "person-customer"},
	{Value: "Takım üyesi", Text: "Takım üyesi", SK: "person-team-member"},
	{Value: "İletişim becerileri", Text: "İletişim becerileri", SK: "topic-communication"},
	{Value: "İş performansı", Text: "İş performansı", SK: "topic-performance"},
	{Value: "Proje yönetimi", Text: "Proje yönetimi", SK: "topic-project-management"},
	{Value: "Ekip çalışması", Text: "Ekip çalışması", SK: "topic-teamwork"},
	{Value: "Liderlik", Text: "Liderlik", SK: "topic-leadership"},
	{Value: "Teknik beceriler", Text: "Teknik beceriler", SK: "topic-technical-skills"},
	{Value: "Kişisel gelişim", Text: "Kişisel gelişim", SK: "topic-personal-development"},
	{Value: "Zaman yönetimi", Text: "Zaman yönetimi", SK: "topic-time-management"},
	{Value: "Problem çözme", Text: "Problem çözme", SK: "topic-problem-solving"},
	{Value: "Yaratıcılık", Text: "Yaratıcılık", SK: "topic-creativity"},
}

// catalogueFile is the YAML schema of an options catalogue file.
type catalogueFile struct {
	Options []InputOption `yaml:"options"`
}

// Catalogue holds the local input option set.
//
// # Description
//
// The catalogue starts from the built-in defaults, optionally overlaid from
// a YAML file, and can watch that file for edits so option changes reach a
// running service without a restart.
//
// # Thread Safety
//
// Catalogue is safe for concurrent use.
//
// # Example
//
//	cat, err := LoadCatalogue("configs/input_options.yaml")
//	stop, err := cat.Watch()
//	defer stop()
type Catalogue struct {
	mu      sync.RWMutex
	path    string
	options []InputOption
}

// NewCatalogue creates a catalogue with the built-in default options.
func NewCatalogue() *Catalogue {
	return &Catalogue{options: defaultOptions}
}

// LoadCatalogue creates a catalogue from a YAML file.
//
// # Description
//
// An empty path returns the built-in defaults. A path that exists but fails
// to parse is an error; a missing file falls back to the defaults with a
// warning, because a deployment without the file should still boot.
func LoadCatalogue(path string) (*Catalogue, error) {
	catalogue := &Catalogue{path: path, options: defaultOptions}
	if path == "" {
		return catalogue, nil
	}

	if err := catalogue.Reload(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Catalogue file missing, using built-in options", "path", path)
			return catalogue, nil
		}
		return nil, err
	}
	return catalogue, nil
}

// Reload re-reads the catalogue file.
//
// # Outputs
//
//   - error: Non-nil if the file cannot be read or parsed; the previous
//     options are kept.
func (c *Catalogue) Reload() error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	var parsed catalogueFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse catalogue file %s: %w", c.path, err)
	}
	if len(parsed.Options) == 0 {
		return fmt.Errorf("catalogue file %s contains no options", c.path)
	}

	c.mu.Lock()
	c.options = parsed.Options
	c.mu.Unlock()

	slog.Info("Catalogue reloaded", "path", c.path, "options", len(parsed.Options))
	return nil
}

// Options returns a copy of the current option set.
func (c *Catalogue) Options() []InputOption {
	c.mu.RLock()
	defer c.mu.RUnlock()
	options := make([]InputOption, len(c.options))
	copy(options, c.options)
	return options
}

// Labels returns the display texts of the current option set.
func (c *Catalogue) Labels() []string {
	return Labels(c.Options())
}

// Watch reloads the catalogue whenever its file changes.
//
// # Description
//
// A background goroutine watches the file with fsnotify and reloads on
// write or create events. Reload failures keep the previous options and log
// a warning; an editor mid-save must not wipe the catalogue.
//
// # Outputs
//
//   - func(): Stops the watcher and releases it.
//   - error: Non-nil when the file cannot be watched.
func (c *Catalogue) Watch() (func(), error) {
	if c.path == "" {
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create catalogue watcher: %w", err)
	}
	if err := watcher.Add(c.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch catalogue file %s: %w", c.path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if err := c.Reload(); err != nil {
						slog.Warn("Catalogue reload failed, keeping previous options",
							"path", c.path, "error", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Catalogue watcher error", "path", c.path, "error", err)
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		watcher.Close()
	}
	return stop, nil
}
