// Package config provides configuration loading and management for semcat.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/mapping"
	"github.com/c360studio/semcat/resolver"
	"github.com/c360studio/semcat/source"
)

// Config represents the complete semcat configuration
type Config struct {
	Query      QueryConfig      `yaml:"query"`
	Mapping    MappingConfig    `yaml:"mapping"`
	Pagination PaginationConfig `yaml:"pagination"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	NATS       NATSConfig       `yaml:"nats"`
	Catalog    CatalogConfig    `yaml:"catalog"`
}

// QueryConfig bounds query evaluation
type QueryConfig struct {
	// TimeoutMs is the per-query evaluation bound in milliseconds
	TimeoutMs int `yaml:"timeoutMs"`
}

// Timeout returns the query bound as a duration.
func (q QueryConfig) Timeout() time.Duration {
	return time.Duration(q.TimeoutMs) * time.Millisecond
}

// MappingConfig selects the mapping table
type MappingConfig struct {
	// TableVersion selects the mapping table revision (e.g., "2024.1")
	TableVersion string `yaml:"tableVersion"`
}

// PaginationConfig bounds listings
type PaginationConfig struct {
	// MaxLimit caps the limit of every listing regardless of the request
	MaxLimit int `yaml:"maxLimit"`
}

// IngestConfig configures extraction and identity
type IngestConfig struct {
	// Workers bounds concurrent file extraction
	Workers int `yaml:"workers"`
	// Include lists doublestar globs selecting files under a root
	Include []string `yaml:"include"`
	// Dictionary is an optional vendor dictionary merged over the default
	Dictionary string `yaml:"dictionary"`
	// BaseIRI prefixes every entity identifier
	BaseIRI string `yaml:"baseIRI"`
	// AccessURLTemplate renders distribution access URLs ({study}, {series})
	AccessURLTemplate string `yaml:"accessURLTemplate"`
}

// StorageConfig configures persistence
type StorageConfig struct {
	// Path is the SQLite database file (empty = in-memory store only)
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	// Addr is the listen address
	Addr string `yaml:"addr"`
}

// NATSConfig configures change notifications
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled)
	URL string `yaml:"url"`
	// Subject receives dataset update events
	Subject string `yaml:"subject"`
}

// CatalogConfig describes the catalog node. Empty fields fall back to the
// mapping table defaults.
type CatalogConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Publisher   string `yaml:"publisher"`
	// License is the license document IRI
	License  string `yaml:"license"`
	Language string `yaml:"language"`
	// Issued is the catalog publication date
	Issued string `yaml:"issued"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Query: QueryConfig{
			TimeoutMs: 5000,
		},
		Mapping: MappingConfig{
			TableVersion: mapping.DefaultVersion,
		},
		Pagination: PaginationConfig{
			MaxLimit: 100,
		},
		Ingest: IngestConfig{
			Workers: 4,
			Include: slices.Clone(source.DefaultInclude),
			BaseIRI: resolver.DefaultBaseIRI,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		NATS: NATSConfig{
			Subject: graph.DatasetUpdatedSubject,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Query.TimeoutMs <= 0 {
		return fmt.Errorf("query.timeoutMs must be positive")
	}
	if !slices.Contains(mapping.Versions(), c.Mapping.TableVersion) {
		return fmt.Errorf("mapping.tableVersion %q is not one of %v", c.Mapping.TableVersion, mapping.Versions())
	}
	if c.Pagination.MaxLimit < 1 {
		return fmt.Errorf("pagination.maxLimit must be at least 1")
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest.workers must be at least 1")
	}
	if len(c.Ingest.Include) == 0 {
		return fmt.Errorf("ingest.include is required")
	}
	for _, pattern := range c.Ingest.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("ingest.include: invalid pattern %q", pattern)
		}
	}
	if u, err := url.Parse(c.Ingest.BaseIRI); err != nil || !u.IsAbs() {
		return fmt.Errorf("ingest.baseIRI must be an absolute IRI")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required when nats.url is set")
	}
	if c.Catalog.License != "" {
		if u, err := url.Parse(c.Catalog.License); err != nil || !u.IsAbs() {
			return fmt.Errorf("catalog.license must be an absolute IRI")
		}
	}
	if c.Catalog.Issued != "" {
		if _, err := mapping.NormalizeDate(c.Catalog.Issued); err != nil {
			return fmt.Errorf("catalog.issued: %w", err)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Query.TimeoutMs != 0 {
		c.Query.TimeoutMs = other.Query.TimeoutMs
	}
	if other.Mapping.TableVersion != "" {
		c.Mapping.TableVersion = other.Mapping.TableVersion
	}
	if other.Pagination.MaxLimit != 0 {
		c.Pagination.MaxLimit = other.Pagination.MaxLimit
	}

	// Ingest
	if other.Ingest.Workers != 0 {
		c.Ingest.Workers = other.Ingest.Workers
	}
	if len(other.Ingest.Include) > 0 {
		c.Ingest.Include = other.Ingest.Include
	}
	if other.Ingest.Dictionary != "" {
		c.Ingest.Dictionary = other.Ingest.Dictionary
	}
	if other.Ingest.BaseIRI != "" {
		c.Ingest.BaseIRI = other.Ingest.BaseIRI
	}
	if other.Ingest.AccessURLTemplate != "" {
		c.Ingest.AccessURLTemplate = other.Ingest.AccessURLTemplate
	}

	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}

	// Catalog
	if other.Catalog.Title != "" {
		c.Catalog.Title = other.Catalog.Title
	}
	if other.Catalog.Description != "" {
		c.Catalog.Description = other.Catalog.Description
	}
	if other.Catalog.Publisher != "" {
		c.Catalog.Publisher = other.Catalog.Publisher
	}
	if other.Catalog.License != "" {
		c.Catalog.License = other.Catalog.License
	}
	if other.Catalog.Language != "" {
		c.Catalog.Language = other.Catalog.Language
	}
	if other.Catalog.Issued != "" {
		c.Catalog.Issued = other.Catalog.Issued
	}
}
