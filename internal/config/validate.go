package config

import (
	"fmt"
	"net/url"
)

// validLogLevels and validLogFormats enumerate accepted logging values.
var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}
)

// Validate checks a Config for internal consistency. It is called by Load;
// callers constructing a Config programmatically should call it themselves.
func Validate(cfg *Config) error {
	if err := validateURL("orcid.base_url", cfg.ORCID.BaseURL); err != nil {
		return err
	}

	if err := validateURL("ror.base_url", cfg.ROR.BaseURL); err != nil {
		return err
	}

	if cfg.ORCID.ClientID != "" && cfg.ORCID.ClientSecret == "" {
		return fmt.Errorf("orcid.client_id is set but orcid.client_secret is empty")
	}

	if cfg.PartnerType.Field == "" || cfg.PartnerType.Option == "" {
		return fmt.Errorf("partner_type.field and partner_type.option must both be set")
	}

	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level %q: must be debug, info, warn, or error", cfg.Logging.Level)
	}

	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format %q: must be auto, text, or json", cfg.Logging.Format)
	}

	return validateMappings(cfg.Mappings)
}

// validateMappings enforces the mapping-table invariants: non-empty unique
// triggers, at least one target per entry, and all-or-nothing employment
// targets (the three parallel fields share positions, so a partial set
// would leave stale records the delete pass never visits).
func validateMappings(mappings []Mapping) error {
	seen := make(map[string]bool, len(mappings))

	for i := range mappings {
		m := &mappings[i]

		if m.Trigger == "" {
			return fmt.Errorf("mapping %d: trigger must be set", i)
		}

		if seen[m.Trigger] {
			return fmt.Errorf("mapping %d: duplicate trigger %q", i, m.Trigger)
		}

		seen[m.Trigger] = true

		if !m.HasIdentity() && !m.HasGrouped() && !m.HasEmployment() {
			return fmt.Errorf("mapping %d (%s): no targets configured", i, m.Trigger)
		}

		e := m.Employment
		if m.HasEmployment() && (e.Role == "" || e.Affiliation == "" || e.RORID == "") {
			return fmt.Errorf("mapping %d (%s): employment targets require role, affiliation, and ror_id", i, m.Trigger)
		}
	}

	return nil
}

// validateURL checks that a provider URL parses and is absolute.
func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("%s %q: must be an absolute URL", key, raw)
	}

	return nil
}
