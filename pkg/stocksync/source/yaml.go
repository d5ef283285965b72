package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

// YAMLSource loads groups from a YAML file or a directory of them.
//
//	groups:
//	  - name: Tech
//	    symbols: [AAPL, MSFT]
//	  - name: Asia
//	    groups:
//	      - name: Japan
//	        symbols: [7203.T]
//
// Nested groups are named by their path ("Asia/Japan"). In a directory,
// names are prefixed with the file's relative path without extension.
type YAMLSource struct {
	Path string
}

type fileNode struct {
	Groups []groupNode `yaml:"groups"`
}

type groupNode struct {
	Name    string      `yaml:"name"`
	Symbols []string    `yaml:"symbols"`
	Groups  []groupNode `yaml:"groups"`
}

func (s YAMLSource) Load(ctx context.Context) (types.GroupModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, err
		}
		base := strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
		out := types.GroupModel{}
		if err := parseYAML(data, base, "", out); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Path, err)
		}
		return out, nil
	}

	var files []string
	err = filepath.WalkDir(s.Path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	out := types.GroupModel{}
	for _, full := range files {
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, err
		}
		// Compute prefix from relative path (without extension), using forward slashes.
		rel, err := filepath.Rel(s.Path, full)
		if err != nil {
			rel = filepath.Base(full)
		}
		prefix := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
		if err := parseYAML(data, prefix, prefix, out); err != nil {
			return nil, fmt.Errorf("%s: %w", full, err)
		}
	}
	return out, nil
}

// parseYAML adds the groups in data to out. Unnamed groups take fallback;
// named ones are prefixed with prefix when set.
func parseYAML(data []byte, fallback, prefix string, out types.GroupModel) error {
	var root fileNode
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if root.Groups == nil {
		return fmt.Errorf("invalid yaml: missing 'groups'")
	}
	var walk func(nodes []groupNode, path []string)
	walk = func(nodes []groupNode, path []string) {
		for _, n := range nodes {
			next := path
			if name := strings.TrimSpace(n.Name); name != "" {
				next = append(append([]string(nil), path...), name)
			}
			name := deriveName(next, fallback, prefix)
			if len(n.Symbols) > 0 || len(n.Groups) == 0 {
				if _, ok := out[name]; !ok {
					out[name] = nil
				}
				for _, sym := range n.Symbols {
					out.Add(name, sym)
				}
			}
			walk(n.Groups, next)
		}
	}
	walk(root.Groups, nil)
	return nil
}

func deriveName(path []string, fallback, prefix string) string {
	if len(path) == 0 {
		return fallback
	}
	name := strings.Join(path, "/")
	if prefix != "" {
		return prefix + "/" + name
	}
	return name
}

// WriteYAML stores groups at path in the format YAMLSource reads, sorted by
// name. The file is replaced atomically.
func WriteYAML(path string, groups types.GroupModel) error {
	var root fileNode
	for _, name := range groups.Names() {
		root.Groups = append(root.Groups, groupNode{Name: name, Symbols: groups[name]})
	}
	if root.Groups == nil {
		root.Groups = []groupNode{}
	}
	data, err := yaml.Marshal(&root)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
