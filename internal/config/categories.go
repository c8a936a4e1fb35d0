package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/logger"
)

// Category file validation errors.
var (
	ErrNoCategories            = errors.New("no categories configured")
	ErrMissingFilters          = errors.New("filters section is missing")
	ErrMissingBlacklist        = errors.New("filters.blacklist_domains is missing")
	ErrMissingExcludedKeywords = errors.New("filters.excluded_keywords is missing")
	ErrDuplicateCategory       = errors.New("duplicate category key")
	ErrNoKeywords              = errors.New("category has no keywords")
	ErrNoSources               = errors.New("category has no sources")
	ErrNoFeeds                 = errors.New("feed source enabled but no feeds configured")
)

// Category is one configured topic. Key is the mapping key it was declared under.
type Category struct {
	Key      string   `yaml:"-"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Sources  []string `yaml:"sources"`
}

// Kinds returns the enabled source kinds in visiting order, independent of
// the order they are listed in the file.
func (c Category) Kinds() []article.SourceKind {
	enabled := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		enabled[s] = true
	}
	var kinds []article.SourceKind
	for _, k := range article.Kinds {
		if enabled[string(k)] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// DisplayName falls back to the key when no name is configured.
func (c Category) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Key
}

// Categories keeps the declaration order of the YAML mapping.
type Categories []Category

func (c *Categories) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: categories must be a mapping", node.Line)
	}
	out := make(Categories, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var cat Category
		if err := valNode.Decode(&cat); err != nil {
			return fmt.Errorf("category %q: %w", keyNode.Value, err)
		}
		cat.Key = keyNode.Value
		out = append(out, cat)
	}
	*c = out
	return nil
}

// Filters hold the rejection lists. A nil slice means the key was absent.
type Filters struct {
	BlacklistDomains []string `yaml:"blacklist_domains"`
	ExcludedKeywords []string `yaml:"excluded_keywords"`
}

// CategoriesConfig is the categories YAML structure
//
//	categories:
//	  roaming:
//	    name: Roaming
//	    keywords: [roaming, eSIM]
//	    sources: [domestic-news, global-search]
//	filters:
//	  blacklist_domains: [...]
//	  excluded_keywords: [...]
//	feeds:
//	  - https://...
type CategoriesConfig struct {
	Categories Categories `yaml:"categories"`
	Filters    *Filters   `yaml:"filters"`
	Feeds      []string   `yaml:"feeds"`
}

// LoadCategories reads and validates the categories file at path.
func LoadCategories(path string) (*CategoriesConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open categories config: %w", err)
	}
	defer f.Close()

	var cfg CategoriesConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode categories config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *CategoriesConfig) Validate() error {
	if len(c.Categories) == 0 {
		return ErrNoCategories
	}
	if c.Filters == nil {
		return ErrMissingFilters
	}
	if c.Filters.BlacklistDomains == nil {
		return ErrMissingBlacklist
	}
	if c.Filters.ExcludedKeywords == nil {
		return ErrMissingExcludedKeywords
	}
	if len(c.Filters.BlacklistDomains) == 0 {
		logger.Warn("filters.blacklist_domains is empty, no domains will be rejected")
	}
	if len(c.Filters.ExcludedKeywords) == 0 {
		logger.Warn("filters.excluded_keywords is empty, no keywords will be rejected")
	}

	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if seen[cat.Key] {
			return fmt.Errorf("%w: %s", ErrDuplicateCategory, cat.Key)
		}
		seen[cat.Key] = true
		if len(cat.Keywords) == 0 {
			return fmt.Errorf("%w: %s", ErrNoKeywords, cat.Key)
		}
		if len(cat.Sources) == 0 {
			return fmt.Errorf("%w: %s", ErrNoSources, cat.Key)
		}
		for _, s := range cat.Sources {
			if _, err := article.ParseSourceKind(s); err != nil {
				return fmt.Errorf("category %s: %w", cat.Key, err)
			}
		}
	}
	if c.uses(func(k article.SourceKind) bool { return k == article.SourceFeed }) && len(c.Feeds) == 0 {
		return ErrNoFeeds
	}
	return nil
}

// UsesDomestic reports whether any category enables a domestic source.
func (c *CategoriesConfig) UsesDomestic() bool {
	return c.uses(article.SourceKind.IsDomestic)
}

// UsesGlobalSearch reports whether any category enables the global search source.
func (c *CategoriesConfig) UsesGlobalSearch() bool {
	return c.uses(func(k article.SourceKind) bool { return k == article.SourceGlobalSearch })
}

func (c *CategoriesConfig) uses(match func(article.SourceKind) bool) bool {
	for _, cat := range c.Categories {
		for _, k := range cat.Kinds() {
			if match(k) {
				return true
			}
		}
	}
	return false
}

// Keys returns category keys in declaration order.
func (c *CategoriesConfig) Keys() []string {
	keys := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		keys[i] = cat.Key
	}
	return keys
}
