package division

import (
	"context"
	"fmt"
	"log"
)

// Bootstrap creates the per-division schema objects before the HTTP surface
// starts. Every statement is idempotent, so re-running at each boot is safe.
func (r *Registry) Bootstrap(ctx context.Context) error {
	for _, code := range r.Codes() {
		pool, err := r.Pool(code)
		if err != nil {
			return err
		}
		tables := r.Resolve(code)
		for _, stmt := range bootstrapStatements(tables) {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("bootstrap %s: %w", code, err)
			}
		}
		log.Printf("[INFO] schema bootstrap complete for division %s", code)
	}
	return nil
}

func bootstrapStatements(t TableSet) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			division VARCHAR(10) NOT NULL,
			year INTEGER NOT NULL,
			product_group VARCHAR(255) NOT NULL,
			asp_round NUMERIC(10,2) CHECK (asp_round IS NULL OR (asp_round >= 0 AND asp_round <= 1000)),
			morm_round NUMERIC(10,2) CHECK (morm_round IS NULL OR (morm_round >= 0 AND morm_round <= 1000)),
			rm_round NUMERIC(10,2) CHECK (rm_round IS NULL OR (rm_round >= 0 AND rm_round <= 1000)),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			CONSTRAINT %s_uniq UNIQUE (division, year, product_group)
		)`, t.Pricing, t.Pricing),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			division VARCHAR(10) NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL CHECK (month >= 1 AND month <= 12),
			product_group VARCHAR(255) NOT NULL,
			metric VARCHAR(20) NOT NULL,
			value NUMERIC(18,2) NOT NULL DEFAULT 0,
			material VARCHAR(255),
			process VARCHAR(255),
			uploaded_filename VARCHAR(512),
			uploaded_at TIMESTAMP NOT NULL DEFAULT NOW(),
			CONSTRAINT %s_uniq UNIQUE (division, year, month, product_group, metric)
		)`, t.Budget, t.Budget),
		`CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
			BEGIN NEW.updated_at = NOW(); RETURN NEW; END;
		$$ LANGUAGE plpgsql`,
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s_touch ON %s`, t.Pricing, t.Pricing),
		fmt.Sprintf(`CREATE TRIGGER %s_touch BEFORE UPDATE ON %s
			FOR EACH ROW EXECUTE FUNCTION set_updated_at()`, t.Pricing, t.Pricing),
	}
}
