package memory

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadBank reads a YAML question bank: a list of PoolEntry records.
func LoadBank(path string) ([]PoolEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read question bank %s", path)
	}
	var entries []PoolEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "parse question bank %s", path)
	}
	return entries, nil
}
