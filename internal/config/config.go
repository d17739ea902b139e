// Package config is the preference-lookup collaborator of spec.md §6: a
// string-keyed source of configuration values. The core never parses
// configuration files itself, it only reads through this interface.
package config

import (
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Preference keys (spec.md §6). scan.Run reads max_scan_hosts,
// max_alive_hosts, port_range and alive_test from a Source. cmd/alivescan
// picks the downstream queue from its --db-address and --maindbid flags
// only; db_address and ov_maindbid values in a Source are not read.
const (
	KeyDBAddress      = "db_address"
	KeyMainDBID       = "ov_maindbid"
	KeyMaxScanHosts   = "max_scan_hosts"
	KeyMaxAliveHosts  = "max_alive_hosts"
	KeyPortRange      = "port_range"
	KeyAliveTest      = "alive_test"
)

// Source is the preference-lookup contract. All values are strings;
// numeric ones are decimal integers, matching spec.md §6.
type Source interface {
	Get(key string) (string, bool)
}

// MapSource is a Source backed by a plain map, handy for tests and for
// embedders that already have their settings in memory.
type MapSource map[string]string

func (m MapSource) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// FileSource loads preferences from a YAML document of string keys to
// string values, the way RicYaben-dice's configuration.go loads settings
// from a file under the standard config path.
type FileSource struct {
	values map[string]string
}

// LoadYAML parses a YAML mapping document from r into a FileSource.
func LoadYAML(r io.Reader) (*FileSource, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string)
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return &FileSource{values: values}, nil
}

func (f *FileSource) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// GetInt looks up key in src and parses it as a decimal integer, returning
// def if the key is absent or unparsable.
func GetInt(src Source, key string, def int) int {
	raw, ok := src.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// GetString looks up key in src, returning def if absent.
func GetString(src Source, key, def string) string {
	if v, ok := src.Get(key); ok {
		return v
	}
	return def
}
