package config

// Default provider endpoints.
const (
	defaultORCIDBaseURL = "https://pub.orcid.org/v3.0"
	defaultORCIDToken   = "https://orcid.org/oauth/token"
	defaultRORBaseURL   = "https://api.ror.org/v1"
)

// Default URIs for the partner-type marker record. These match the RDMO
// domain vocabulary the engine was originally deployed against; most
// installations override them.
const (
	defaultPartnerTypeField  = "https://rdmo.mpdl.mpg.de/terms/domain/project/partner/type"
	defaultPartnerTypeOption = "https://rdmo.mpdl.mpg.de/terms/options/partner-types/person"
)

// DefaultConfig returns a Config populated with all default values.
// The mapping table has no default: without at least one configured
// mapping the engine is disabled.
func DefaultConfig() *Config {
	return &Config{
		ORCID: ORCIDConfig{
			BaseURL:  defaultORCIDBaseURL,
			TokenURL: defaultORCIDToken,
		},
		ROR: RORConfig{
			BaseURL:          defaultRORBaseURL,
			AlternateSources: []string{"GRID", "FUNDREF"},
		},
		PartnerType: ReferenceConfig{
			Field:  defaultPartnerTypeField,
			Option: defaultPartnerTypeOption,
		},
		Store: StoreConfig{
			Path: "orcid-go.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}
