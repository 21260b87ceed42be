// Package pg implements the session store on PostgreSQL via pgx.
//
// The sessions table enforces the entity invariants at the schema level:
// a unique hashed-token index (O(1)-class token resolution), expiry strictly
// after creation, and shapeshift timestamp/original-principal consistency.
// Schema management uses embedded goose migrations:
//
//	if err := pg.Migrate(ctx, databaseURL); err != nil {
//		log.Fatal(err)
//	}
//
//	pool, err := pgxpool.New(ctx, databaseURL)
//	if err != nil {
//		log.Fatal(err)
//	}
//	store := pg.New(pool)
package pg
