package formspec

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formctl/pkg/formctl"
)

// Form is a named controller configuration and the file it came from.
type Form struct {
	Name   string
	Source string
	Config formctl.Config
}

// Store indexes form configurations by name.
type Store struct {
	forms map[string]Form
}

type documentFile struct {
	Defaults *formctl.Config           `yaml:"defaults"`
	Forms    map[string]formctl.Config `yaml:"forms"`
}

// Load walks fsys and parses every JSON or YAML form definition file.
// When fsys is nil or holds no definition files the store is empty.
func Load(fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]Form)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("formspec: read %s: %w", path, err)
		}
		return store.add(data, path)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Decode parses a single definition document.
func Decode(data []byte) (*Store, error) {
	store := &Store{forms: make(map[string]Form)}
	if err := store.add(data, "<inline>"); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) add(data []byte, source string) error {
	doc, err := parseDocument(data, source)
	if err != nil {
		return err
	}
	for rawName, cfg := range doc.Forms {
		name := strings.TrimSpace(rawName)
		if name == "" {
			return fmt.Errorf("formspec: file %s defines a form with an empty name", source)
		}
		if prev, exists := s.forms[name]; exists {
			return fmt.Errorf("formspec: duplicate form %q (files %s and %s)", name, prev.Source, source)
		}
		if doc.Defaults != nil {
			cfg = mergeDefaults(*doc.Defaults, cfg)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("formspec: form %q (file %s): %w", name, source, err)
		}
		s.forms[name] = Form{Name: name, Source: source, Config: cfg}
	}
	return nil
}

// Form returns the configuration registered under name.
func (s *Store) Form(name string) (formctl.Config, bool) {
	if s == nil {
		return formctl.Config{}, false
	}
	form, ok := s.forms[name]
	return form.Config, ok
}

// Lookup returns the form together with its source file.
func (s *Store) Lookup(name string) (Form, bool) {
	if s == nil {
		return Form{}, false
	}
	form, ok := s.forms[name]
	return form, ok
}

// Names lists the registered forms in lexical order.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.forms))
	for name := range s.forms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

// parseDocument decodes YAML or JSON. JSON documents are valid YAML, and
// yaml.v3 understands duration strings such as "8s".
func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("formspec: file %s is empty", source)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("formspec: parse %s: %w", source, err)
	}
	if len(doc.Forms) == 0 {
		return documentFile{}, fmt.Errorf("formspec: file %s defines no forms", source)
	}
	return doc, nil
}

// mergeDefaults fills the scalar settings cfg leaves empty from defaults.
// Lists are never merged.
func mergeDefaults(defaults, cfg formctl.Config) formctl.Config {
	out := cfg
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&out.FormID, defaults.FormID)
	fill(&out.SubmitButtonID, defaults.SubmitButtonID)
	fill(&out.AlertContainerID, defaults.AlertContainerID)
	fill(&out.FieldIDPrefix, defaults.FieldIDPrefix)
	fill(&out.SubmitLabel, defaults.SubmitLabel)
	fill(&out.BusyLabel, defaults.BusyLabel)
	fill(&out.BooleanValue, defaults.BooleanValue)
	fill(&out.CSRFCookie, defaults.CSRFCookie)
	fill(&out.CSRFHeader, defaults.CSRFHeader)
	if out.BannerTimeout == 0 {
		out.BannerTimeout = defaults.BannerTimeout
	}
	if out.BannerFade == 0 {
		out.BannerFade = defaults.BannerFade
	}
	return out
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
