package credentials

import (
	"context"
	"fmt"

	"github.com/angelmondragon/grocerycart/pkg/config"
	"github.com/angelmondragon/grocerycart/pkg/db"
	"github.com/angelmondragon/grocerycart/pkg/enums"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/angelmondragon/grocerycart/pkg/migrate"
	"github.com/angelmondragon/grocerycart/pkg/redis"
	"go.uber.org/multierr"
)

// Backend is an opened Store plus the connections it owns.
type Backend struct {
	Store
	Kind    enums.CredentialBackend
	closers []func() error
}

// Close releases every connection held by the backend.
func (b *Backend) Close() error {
	var err error
	for i := len(b.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, b.closers[i]())
	}
	return err
}

// Open builds the configured credential backend.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Backend, error) {
	kind, err := enums.ParseCredentialBackend(cfg.Credentials.Backend)
	if err != nil {
		return nil, err
	}
	if logg == nil {
		logg = logger.Nop()
	}
	ctx = logg.WithField(ctx, "credentials_backend", kind.String())

	switch kind {
	case enums.CredentialBackendMemory:
		return &Backend{Store: NewMemory(), Kind: kind}, nil

	case enums.CredentialBackendRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		store, err := NewRedis(client)
		if err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		return &Backend{Store: store, Kind: kind, closers: []func() error{client.Close}}, nil

	case enums.CredentialBackendSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		if err := migrate.MaybeAutoMigrate(ctx, cfg.DB, logg, client); err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		store, err := NewSQL(client.DB())
		if err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		return &Backend{Store: store, Kind: kind, closers: []func() error{client.Close}}, nil
	}
	return nil, fmt.Errorf("unsupported credentials backend %q", kind)
}
