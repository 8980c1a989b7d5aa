package classify

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/forgewright/planloom/internal/logging"
)

// RouteFunc is the signature an override snippet's exported Route function
// must satisfy: given requirement text, return a category string and
// whether it confidently claims this text (ok=false passes through to
// Tier 1, same as any other cascade tier).
type RouteFunc func(text string) (category string, ok bool)

// OverrideRule is a single interpreted routing rule loaded from a Go source
// snippet, realizing SPEC_FULL.md §11.2's "tune routing without recompiling"
// hook.
type OverrideRule struct {
	Name  string
	Route RouteFunc
}

// LoadOverrideRules interprets every *.go file directly under dir as an
// override snippet. Each file must declare `package override` and export a
// func Route(text string) (string, bool). A missing directory is not an
// error — it simply yields no rules.
func LoadOverrideRules(dir string) ([]OverrideRule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("classify: read override rule dir: %w", err)
	}

	var rules []OverrideRule
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		rule, err := loadOverrideRule(path)
		if err != nil {
			logging.For(logging.ComponentClassify).Warnw("skipping invalid override rule", "path", path, "err", err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func loadOverrideRule(path string) (OverrideRule, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return OverrideRule{}, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return OverrideRule{}, fmt.Errorf("load stdlib symbols: %w", err)
	}

	if _, err := i.Eval(string(src)); err != nil {
		return OverrideRule{}, fmt.Errorf("eval override snippet: %w", err)
	}

	v, err := i.Eval("override.Route")
	if err != nil {
		return OverrideRule{}, fmt.Errorf("override snippet does not export Route: %w", err)
	}

	routeFn, ok := v.Interface().(func(string) (string, bool))
	if !ok {
		return OverrideRule{}, fmt.Errorf("override.Route has the wrong signature, want func(string) (string, bool)")
	}

	return OverrideRule{
		Name: filepath.Base(path),
		Route: func(text string) (string, bool) {
			return routeFn(text)
		},
	}, nil
}
