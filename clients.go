package main

import (
	"context"

	"github.com/tonimelisma/orcid-go/internal/config"
	"github.com/tonimelisma/orcid-go/internal/orcid"
	"github.com/tonimelisma/orcid-go/internal/ror"
)

// newORCIDClient builds the ORCID API client from config, attaching a
// client-credentials token source when credentials are configured.
func newORCIDClient(ctx context.Context, cfg *config.Config) *orcid.Client {
	var token orcid.TokenSource
	if cfg.ORCID.ClientID != "" {
		token = orcid.ClientCredentialsTokenSource(ctx,
			cfg.ORCID.TokenURL, cfg.ORCID.ClientID, cfg.ORCID.ClientSecret)
	}

	return orcid.NewClient(cfg.ORCID.BaseURL, defaultHTTPClient(), token, cfg.ORCID.Headers, logger)
}

// newRORResolver builds the ROR registry resolver from config.
func newRORResolver(cfg *config.Config) *ror.Resolver {
	return ror.NewResolver(cfg.ROR.BaseURL, defaultHTTPClient(), cfg.ROR.Headers,
		cfg.ROR.AlternateSources, logger)
}
