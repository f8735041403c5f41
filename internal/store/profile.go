package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Tunables is the adjustable subset of the pipeline configuration a
// profile captures. Durations are milliseconds so the JSON stays
// editable by hand.
type Tunables struct {
	CurlThreshold     float64 `json:"curl_threshold"`
	ExtendMargin      float64 `json:"extend_margin"`
	PointerRatio      float64 `json:"pointer_ratio"`
	PinchThreshold    float64 `json:"pinch_threshold"`
	DebounceFrames    int     `json:"debounce_frames"`
	HandLostTimeoutMs int     `json:"hand_lost_timeout_ms"`
	ToggleCooldownMs  int     `json:"toggle_cooldown_ms"`
	Smoothing         float64 `json:"smoothing"`
	PinchSensitivity  float64 `json:"pinch_sensitivity"`
	Deadband          int     `json:"deadband"`
	TakeoverEpsilon   int     `json:"takeover_epsilon"`
}

// Profile is a named, persisted set of tunables.
type Profile struct {
	ID        string
	Name      string
	Tunables  Tunables
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileRepository provides CRUD operations for tuning profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// Create inserts a new profile. A missing ID is generated.
func (r *ProfileRepository) Create(p *Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	data, err := json.Marshal(p.Tunables)
	if err != nil {
		return fmt.Errorf("marshal tunables: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO profiles (id, name, data, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(data), boolInt(p.Active), p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID returns the profile with the given ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	row := r.db.QueryRow(
		`SELECT id, name, data, active, created_at, updated_at FROM profiles WHERE id = ?`, id)
	return scanProfile(row)
}

// GetByName returns the profile with the given name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	row := r.db.QueryRow(
		`SELECT id, name, data, active, created_at, updated_at FROM profiles WHERE name = ?`, name)
	return scanProfile(row)
}

// Active returns the currently selected profile, or ErrNotFound when no
// profile has been activated.
func (r *ProfileRepository) Active() (*Profile, error) {
	row := r.db.QueryRow(
		`SELECT id, name, data, active, created_at, updated_at FROM profiles WHERE active = 1`)
	return scanProfile(row)
}

// List returns all profiles ordered by name.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(
		`SELECT id, name, data, active, created_at, updated_at FROM profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Update rewrites a profile's name and tunables.
func (r *ProfileRepository) Update(p *Profile) error {
	p.UpdatedAt = time.Now()

	data, err := json.Marshal(p.Tunables)
	if err != nil {
		return fmt.Errorf("marshal tunables: %w", err)
	}

	res, err := r.db.Exec(
		`UPDATE profiles SET name = ?, data = ?, updated_at = ? WHERE id = ?`,
		p.Name, string(data), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive marks one profile as selected and clears the rest.
func (r *ProfileRepository) SetActive(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE profiles SET active = 0 WHERE active = 1`); err != nil {
		return err
	}
	res, err := tx.Exec(`UPDATE profiles SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Delete removes a profile.
func (r *ProfileRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var data string
	var active int
	err := row.Scan(&p.ID, &p.Name, &data, &active, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &p.Tunables); err != nil {
		return nil, fmt.Errorf("unmarshal tunables: %w", err)
	}
	p.Active = active != 0
	return &p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
