// Package config implements TOML configuration loading and validation for
// orcid-go: provider endpoints and credentials, the field-mapping table
// that drives the sync engine, and logging options. Configuration is loaded
// once per process and read-only thereafter — the engine receives it as an
// explicit object, never through package-level state.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	ORCID       ORCIDConfig     `toml:"orcid"`
	ROR         RORConfig       `toml:"ror"`
	PartnerType ReferenceConfig `toml:"partner_type"`
	Store       StoreConfig     `toml:"store"`
	Logging     LoggingConfig   `toml:"logging"`
	Mappings    []Mapping       `toml:"mapping"`
}

// ORCIDConfig holds the ORCID provider endpoint and optional OAuth2
// client-credentials settings. With an empty client_id the client runs
// anonymously against the public API.
type ORCIDConfig struct {
	BaseURL      string            `toml:"base_url"`
	TokenURL     string            `toml:"token_url"`
	ClientID     string            `toml:"client_id"`
	ClientSecret string            `toml:"client_secret"`
	Headers      map[string]string `toml:"headers"`
}

// RORConfig holds the ROR registry endpoint and the set of alternate
// disambiguation sources resolved through it.
type RORConfig struct {
	BaseURL          string            `toml:"base_url"`
	Headers          map[string]string `toml:"headers"`
	AlternateSources []string          `toml:"alternate_sources"`
}

// ReferenceConfig identifies the fixed marker record written on every
// successful sync: the partner-type field and the option it is set to.
type ReferenceConfig struct {
	Field  string `toml:"field"`
	Option string `toml:"option"`
}

// StoreConfig locates the local value database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig controls log level and output format.
// Level is one of "debug", "info", "warn", "error". Format is "auto"
// (text on a TTY, JSON otherwise), "text", or "json".
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Mapping associates one trigger field (the field whose write carries an
// ORCID iD) with the target fields populated from the fetched record.
// Empty targets are simply not synced. A mapping may configure the grouped
// affiliation targets (Role, Affiliation), the per-employment targets
// (Employment), or both.
type Mapping struct {
	Trigger     string            `toml:"trigger"`
	ORCID       string            `toml:"orcid"`
	GivenName   string            `toml:"given_name"`
	FamilyName  string            `toml:"family_name"`
	Role        string            `toml:"role"`
	Affiliation string            `toml:"affiliation"`
	Employment  EmploymentTargets `toml:"employment"`
}

// EmploymentTargets are the three parallel fields of the per-employment
// variant, all indexed by the same employment position.
type EmploymentTargets struct {
	Role        string `toml:"role"`
	Affiliation string `toml:"affiliation"`
	RORID       string `toml:"ror_id"`
}

// HasIdentity reports whether any identity target is configured.
func (m *Mapping) HasIdentity() bool {
	return m.ORCID != "" || m.GivenName != "" || m.FamilyName != ""
}

// HasGrouped reports whether the grouped affiliation variant is configured.
func (m *Mapping) HasGrouped() bool {
	return m.Role != "" || m.Affiliation != ""
}

// HasEmployment reports whether the per-employment variant is configured.
func (m *Mapping) HasEmployment() bool {
	return m.Employment != (EmploymentTargets{})
}

// MappingFor returns the mapping whose trigger matches the given field, or
// nil. Triggers are unique (enforced by Validate), so at most one mapping
// applies per sync pass.
func (c *Config) MappingFor(field string) *Mapping {
	for i := range c.Mappings {
		if c.Mappings[i].Trigger == field {
			return &c.Mappings[i]
		}
	}

	return nil
}
