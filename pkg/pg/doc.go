// Package pg connects to PostgreSQL through a pgx/v5 pool and applies goose
// migrations embedded by the packages that own each schema.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, pgstore.Migrations, pgstore.MigrationsDir, log); err != nil {
//		return err
//	}
//
// Healthcheck returns a check suitable for readiness endpoints.
// IsNotFoundError and IsDuplicateKeyError classify pgx errors.
package pg
