package app

import (
	"context"
	"time"

	"upvote/cmd/identity"
)

// seedAccount creates the configured startup account when it does not exist
// yet. Losing a creation race to another replica is fine; the account is
// there either way.
func seedAccount(ctx context.Context, log Logger, svc *identity.Service, cfg Config) error {
	if cfg.SeedUsername == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, found, err := svc.FindByUsername(ctx, cfg.SeedUsername)
	if err != nil {
		return err
	}
	if found {
		log.Info("seed.skip.exists", "username", cfg.SeedUsername)
		return nil
	}

	_, err = svc.Register(ctx, identity.RegisterInput{
		Username: cfg.SeedUsername,
		Password: cfg.SeedPassword,
	})
	if err != nil {
		if identity.IsConflict(err) {
			log.Info("seed.skip.race", "username", cfg.SeedUsername)
			return nil
		}
		return err
	}

	log.Info("seed.ok", "username", cfg.SeedUsername)
	return nil
}
