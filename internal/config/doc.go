package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Doc is the gateway's admin-mutable configuration document (spec.md
// §3's ConfigDoc): pay-to address, network name, optional API key,
// the agent blocklist, and route groups. Distinct from Config (§6.5's
// environment-only bootstrap settings): Doc is read at startup,
// mutated by admin operations, and persisted back to disk — mirroring
// internal/routes' own file-backed Document, not environment
// variables.
type Doc struct {
	PayToAddress   string   `yaml:"pay_to_address"`
	Network        string   `yaml:"network"`
	APIKey         string   `yaml:"api_key,omitempty"`
	AgentBlocklist []string `yaml:"agent_blocklist,omitempty"`
	RouteGroups    []string `yaml:"route_groups,omitempty"`
}

// LoadDoc reads the dashboard-level config doc from path, merged over
// defaults built from the bootstrap Config. A missing file is not an
// error: it yields defaults, since the doc only needs to exist once an
// operator has mutated something via /admin.
func LoadDoc(path string, defaults Doc) (Doc, error) {
	if path == "" {
		return defaults, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return Doc{}, err
	}
	doc := defaults
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Doc{}, err
	}
	return doc, nil
}

// SaveDoc writes the config doc atomically (write-temp-then-rename),
// matching internal/routes.SaveFile's pattern for the routes document.
func SaveDoc(path string, doc Doc) error {
	if path == "" {
		return nil
	}
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
