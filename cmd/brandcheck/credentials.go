package main

import (
	"context"
	"errors"

	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/FranksOps/brandcheck/internal/config"
	"github.com/FranksOps/brandcheck/internal/storage"
)

var errNoCredentialStore = errors.New("no credential store configured: set storage.driver to sqlite or postgres, or credentials.file")

// chainedCredentials prefers credentials saved in the persistent store and
// falls back to the ones from configuration. A save through the settings
// endpoint or command therefore takes effect even when configuration also
// carries credentials.
type chainedCredentials struct {
	static brand.Credentials
	store  storage.CredentialStore
}

func credentialChain(cfg config.RegistrarConfig, store storage.CredentialStore) storage.CredentialStore {
	static := brand.Credentials{UserID: cfg.UserID, APIKey: cfg.APIKey}
	if !static.Configured() && store == nil {
		return nil
	}
	return &chainedCredentials{static: static, store: store}
}

func (c *chainedCredentials) LoadCredentials(ctx context.Context) (brand.Credentials, error) {
	if c.store == nil {
		return c.static, nil
	}
	creds, err := c.store.LoadCredentials(ctx)
	if err != nil {
		if c.static.Configured() {
			return c.static, nil
		}
		return brand.Credentials{}, err
	}
	if creds.Configured() {
		return creds, nil
	}
	return c.static, nil
}

func (c *chainedCredentials) SaveCredentials(ctx context.Context, creds brand.Credentials) error {
	if c.store == nil {
		return errNoCredentialStore
	}
	return c.store.SaveCredentials(ctx, creds)
}
