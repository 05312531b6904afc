package division

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TableSet holds the physical table names for one division. The names are
// fixed at registration time so no request input is ever concatenated into
// an SQL identifier.
type TableSet struct {
	Pricing   string
	Budget    string
	Material  string
	ExcelData string
}

// DefaultCode is used when a request carries no division at all.
const DefaultCode = "fp"

type registryEntry struct {
	code   string
	tables TableSet
	pool   *pgxpool.Pool
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

func tableSetFor(code string) TableSet {
	return TableSet{
		Pricing:   code + "_product_group_pricing_rounding",
		Budget:    code + "_divisional_budget",
		Material:  code + "_material_percentage",
		ExcelData: code + "_excel_data",
	}
}

// Code derives the registry key from a raw division value: first '-' segment,
// lowercased; empty input maps to the default division.
func Code(division string) string {
	d := strings.TrimSpace(division)
	if d == "" {
		return DefaultCode
	}
	if i := strings.Index(d, "-"); i >= 0 {
		d = d[:i]
	}
	d = strings.ToLower(strings.TrimSpace(d))
	if d == "" {
		return DefaultCode
	}
	return d
}

// Register adds a division with its own connection pool. Called once per
// division at startup, before any service begins accepting requests.
func (r *Registry) Register(ctx context.Context, code string, connString string) error {
	code = Code(code)
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return fmt.Errorf("division %s: pool init failed: %w", code, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.entries[code]; ok && old.pool != nil {
		old.pool.Close()
	}
	r.entries[code] = &registryEntry{code: code, tables: tableSetFor(code), pool: pool}
	log.Printf("[INFO] division %s registered (tables %s, %s)", code, tableSetFor(code).Budget, tableSetFor(code).Pricing)
	return nil
}

// Resolve returns the table set for a division. Unknown codes fall back to
// the default division's tables, matching the read-path behaviour the
// frontend depends on.
func (r *Registry) Resolve(division string) TableSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[Code(division)]; ok {
		return e.tables
	}
	if e, ok := r.entries[DefaultCode]; ok {
		return e.tables
	}
	return tableSetFor(Code(division))
}

// ResolveStrict is used on write paths: an unregistered division is an error
// rather than a silent fallback.
func (r *Registry) ResolveStrict(division string) (TableSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[Code(division)]
	if !ok {
		return TableSet{}, fmt.Errorf("unknown division %q", division)
	}
	return e.tables, nil
}

// Pool returns the division's connection pool, falling back to the default
// division's pool when the code is not registered.
func (r *Registry) Pool(division string) (*pgxpool.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[Code(division)]; ok {
		return e.pool, nil
	}
	if e, ok := r.entries[DefaultCode]; ok {
		return e.pool, nil
	}
	return nil, fmt.Errorf("no pool registered for division %q", division)
}

// Codes lists the registered division codes.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for c := range r.entries {
		out = append(out, c)
	}
	return out
}

// Close releases every division pool.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.pool != nil {
			e.pool.Close()
		}
	}
}

// RegisterFromEnv wires divisions from environment variables. Each code in
// codes is looked up as {CODE}_DATABASE_URL, with DATABASE_URL as the shared
// fallback.
func (r *Registry) RegisterFromEnv(ctx context.Context, codes []string) error {
	fallback := os.Getenv("DATABASE_URL")
	for _, code := range codes {
		conn := os.Getenv(strings.ToUpper(Code(code)) + "_DATABASE_URL")
		if conn == "" {
			conn = fallback
		}
		if conn == "" {
			return fmt.Errorf("no connection string for division %s", code)
		}
		if err := r.Register(ctx, code, conn); err != nil {
			return err
		}
	}
	return nil
}

// LoadCodesFromMaster reads the division allow-list from the master database.
// Falls back to the built-in defaults when the registry table is absent.
func LoadCodesFromMaster(db *sql.DB, defaults []string) []string {
	rows, err := db.Query(`SELECT division_code FROM division_registry WHERE active = true ORDER BY division_code`)
	if err != nil {
		log.Println("[INFO] division_registry not available, using defaults:", err)
		return defaults
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			continue
		}
		c = Code(c)
		if c != "" {
			codes = append(codes, c)
		}
	}
	if len(codes) == 0 {
		return defaults
	}
	return codes
}
