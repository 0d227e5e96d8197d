package sandbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // sqlite driver
)

// ErrNotFound returned for unknown record ids and users
var ErrNotFound = errors.New("not found")

// record kinds served by the api, each is a /core/api/v1/<kind> endpoint
const (
	KindVehicles      = "vehicles"
	KindDrivers       = "drivers"
	KindDevices       = "devices"
	KindGroups        = "groups"
	KindOrganizations = "organizations"
	KindRoutes        = "routes"
	KindSchedules     = "schedules"
	KindUsers         = "users"
	KindMaintenance   = "maintenance"
)

// Kinds lists all record kinds
var Kinds = []string{KindVehicles, KindDrivers, KindDevices, KindGroups, KindOrganizations, KindRoutes,
	KindSchedules, KindUsers, KindMaintenance}

// Record is a fleet entity as the api returns it, a json object with a numeric "id"
type Record map[string]any

// ID returns the numeric id of the record, 0 if missing
func (r Record) ID() int {
	switch v := r["id"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Account is a sandbox user able to sign in
type Account struct {
	Email    string `yaml:"email" db:"email"`
	Name     string `yaml:"name" db:"name"`
	Role     string `yaml:"role" db:"role"`
	Password string `yaml:"password" db:"-"`
	Hash     string `yaml:"-" db:"password_hash"`
}

// Seed is the initial content of the sandbox
type Seed struct {
	Accounts []Account           `yaml:"accounts"`
	Records  map[string][]Record `yaml:"records"`
}

// ParseSeed reads the yaml seed
func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("can't parse seed: %w", err)
	}
	for kind, recs := range s.Records {
		if !isKind(kind) {
			return Seed{}, fmt.Errorf("unknown record kind %q in seed", kind)
		}
		for i, r := range recs {
			recs[i] = Record(plainMap(r))
		}
	}
	return s, nil
}

// plainMap turns nested maps into map[string]any, as records read back from json have them.
// yaml.v3 decodes nested mappings of a Record as Record.
func plainMap(m map[string]any) map[string]any {
	res := make(map[string]any, len(m))
	for k, v := range m {
		res[k] = plainValue(v)
	}
	return res
}

func plainValue(v any) any {
	switch t := v.(type) {
	case Record:
		return plainMap(t)
	case map[string]any:
		return plainMap(t)
	case []any:
		res := make([]any, len(t))
		for i, val := range t {
			res[i] = plainValue(val)
		}
		return res
	}
	return v
}

var reRelativeDate = regexp.MustCompile(`^today([+-]\d+)?(?: (\d{2}):(\d{2}))?$`)

// ResolveDates replaces relative dates of seed records, "today+2 08:30", with RFC3339 timestamps.
// Trips of the seed stay on the calendar whenever the sandbox starts.
func (s Seed) ResolveDates(now time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var walk func(v any) any
	walk = func(v any) any {
		switch t := v.(type) {
		case map[string]any:
			for k, val := range t {
				t[k] = walk(val)
			}
		case Record:
			for k, val := range t {
				t[k] = walk(val)
			}
		case []any:
			for i, val := range t {
				t[i] = walk(val)
			}
		case string:
			m := reRelativeDate.FindStringSubmatch(t)
			if m == nil {
				return t
			}
			days, _ := strconv.Atoi(strings.TrimPrefix(m[1], "+"))
			hh, _ := strconv.Atoi(m[2])
			mm, _ := strconv.Atoi(m[3])
			return day.AddDate(0, 0, days).Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute).Format(time.RFC3339)
		}
		return v
	}
	for _, recs := range s.Records {
		for _, r := range recs {
			walk(r)
		}
	}
}

type recordRow struct {
	Kind      string `db:"kind"`
	ID        int    `db:"id"`
	Data      string `db:"data"`
	UpdatedAt int64  `db:"updated_at"`
}

// Store keeps sandbox records and accounts in sqlite
type Store struct {
	db *sqlx.DB
}

// NewStore opens the database, ":memory:" is fine for throwaway runs
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sandbox db %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS records (
			kind TEXT NOT NULL,
			id INTEGER NOT NULL,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (kind, id)
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			email TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL
		)`,
	}
	for _, q := range queries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to init sandbox schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Load replaces accounts and records of the seeded kinds. Kinds are written concurrently,
// passwords are hashed with bcrypt.
func (s *Store) Load(ctx context.Context, seed Seed) error {
	gr := syncs.NewErrSizedGroup(4, syncs.Context(ctx), syncs.Preemptive)
	gr.Go(func() error { return s.loadAccounts(ctx, seed.Accounts) })
	for kind, recs := range seed.Records {
		gr.Go(func() error { return s.loadKind(ctx, kind, recs) })
	}
	if err := gr.Wait(); err != nil {
		return fmt.Errorf("failed to load seed: %w", err)
	}
	log.Printf("[INFO] sandbox seeded with %d accounts and %d kinds", len(seed.Accounts), len(seed.Records))
	return nil
}

func (s *Store) loadAccounts(ctx context.Context, accounts []Account) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accounts: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	for _, a := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.MinCost)
		if err != nil {
			return fmt.Errorf("hash password of %s: %w", a.Email, err)
		}
		a.Email, a.Hash = strings.ToLower(a.Email), string(hash)
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO accounts (email, name, role, password_hash)
			VALUES (:email, :name, :role, :password_hash)`, a); err != nil {
			return fmt.Errorf("insert account %s: %w", a.Email, err)
		}
	}
	return tx.Commit()
}

func (s *Store) loadKind(ctx context.Context, kind string, recs []Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", kind, err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("clear %s: %w", kind, err)
	}
	for i, r := range recs {
		if r.ID() == 0 {
			r["id"] = i + 1
		}
		row, err := toRow(kind, r)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO records (kind, id, data, updated_at)
			VALUES (:kind, :id, :data, :updated_at)`, row); err != nil {
			return fmt.Errorf("insert %s %d: %w", kind, row.ID, err)
		}
	}
	return tx.Commit()
}

// Authenticate checks the password of the account
func (s *Store) Authenticate(ctx context.Context, email, password string) (Account, error) {
	var a Account
	err := s.db.GetContext(ctx, &a, `SELECT email, name, role, password_hash FROM accounts WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, fmt.Errorf("account %s: %w", email, ErrNotFound)
		}
		return Account{}, fmt.Errorf("failed to load account %s: %w", email, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.Hash), []byte(password)); err != nil {
		return Account{}, fmt.Errorf("invalid password for %s", email)
	}
	return a, nil
}

// Account returns the account by email
func (s *Store) Account(ctx context.Context, email string) (Account, error) {
	var a Account
	if err := s.db.GetContext(ctx, &a, `SELECT email, name, role, password_hash FROM accounts WHERE email = ?`,
		strings.ToLower(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, fmt.Errorf("account %s: %w", email, ErrNotFound)
		}
		return Account{}, fmt.Errorf("failed to load account %s: %w", email, err)
	}
	return a, nil
}

// List returns all records of the kind ordered by id
func (s *Store) List(ctx context.Context, kind string) ([]Record, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM records WHERE kind = ? ORDER BY id`, kind); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	res := make([]Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}

// Get returns the record by id
func (s *Store) Get(ctx context.Context, kind string, id int) (Record, error) {
	var row recordRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM records WHERE kind = ? AND id = ?`, kind, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s %d: %w", kind, id, err)
	}
	return row.record()
}

// Create stores a new record with the next free id and returns it
func (s *Store) Create(ctx context.Context, kind string, r Record) (Record, error) {
	var maxID int
	if err := s.db.GetContext(ctx, &maxID, `SELECT COALESCE(MAX(id), 0) FROM records WHERE kind = ?`, kind); err != nil {
		return nil, fmt.Errorf("failed to allocate %s id: %w", kind, err)
	}
	r["id"] = maxID + 1
	row, err := toRow(kind, r)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.NamedExecContext(ctx, `INSERT INTO records (kind, id, data, updated_at)
		VALUES (:kind, :id, :data, :updated_at)`, row); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", kind, err)
	}
	return row.record()
}

// Update merges fields into the stored record, the id can't be changed
func (s *Store) Update(ctx context.Context, kind string, id int, fields Record) (Record, error) {
	cur, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		cur[k] = v
	}
	cur["id"] = id
	row, err := toRow(kind, cur)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.NamedExecContext(ctx, `UPDATE records SET data = :data, updated_at = :updated_at
		WHERE kind = :kind AND id = :id`, row); err != nil {
		return nil, fmt.Errorf("failed to update %s %d: %w", kind, id, err)
	}
	return row.record()
}

// Delete removes the record
func (s *Store) Delete(ctx context.Context, kind string, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}

// Counts returns the number of records per kind
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Kind  string `db:"kind"`
		Count int    `db:"cnt"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT kind, COUNT(*) AS cnt FROM records GROUP BY kind`); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	res := make(map[string]int, len(rows))
	for _, r := range rows {
		res[r.Kind] = r.Count
	}
	return res, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func toRow(kind string, r Record) (recordRow, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return recordRow{}, fmt.Errorf("can't encode %s record: %w", kind, err)
	}
	return recordRow{Kind: kind, ID: r.ID(), Data: string(data), UpdatedAt: time.Now().UnixMilli()}, nil
}

func (r recordRow) record() (Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(r.Data), &rec); err != nil {
		return nil, fmt.Errorf("can't decode %s %d: %w", r.Kind, r.ID, err)
	}
	return rec, nil
}

func isKind(kind string) bool {
	i := sort.SearchStrings(sortedKinds, kind)
	return i < len(sortedKinds) && sortedKinds[i] == kind
}

var sortedKinds = func() []string {
	res := append([]string(nil), Kinds...)
	sort.Strings(res)
	return res
}()
