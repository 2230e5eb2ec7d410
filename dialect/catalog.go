package dialect

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
)

//go:embed catalog/protocols/*.yaml catalog/series/*.yaml
var catalog embed.FS

const (
	protocolsDir = "catalog/protocols"
	seriesDir    = "catalog/series"
)

// Load parses the named dialect from the embedded catalog. Every call
// returns a fresh value.
func Load(name string) (*Dialect, error) {
	data, err := catalog.ReadFile(path.Join(protocolsDir, name+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
		}
		return nil, err
	}
	return Parse(data)
}

// Names lists the dialects in the embedded catalog.
func Names() []string {
	return listYAML(protocolsDir)
}

// LookupModel returns the named device series from the embedded catalog.
func LookupModel(name string) (Model, error) {
	data, err := catalog.ReadFile(path.Join(seriesDir, name+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
		}
		return Model{}, err
	}
	return ParseModel(data)
}

// Models returns every device series in the embedded catalog, sorted by
// name.
func Models() ([]Model, error) {
	var models []Model
	for _, name := range listYAML(seriesDir) {
		m, err := LookupModel(name)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

func listYAML(dir string) []string {
	entries, err := fs.ReadDir(catalog, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
