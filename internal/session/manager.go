package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"datavista-backend/internal/database"
	"datavista-backend/internal/dataset"
	"datavista-backend/internal/profile"
)

var (
	// ErrNotFound indicates the session does not exist or has expired.
	ErrNotFound = errors.New("session not found")
	// ErrNoDataset indicates the session has no dataset loaded yet.
	ErrNoDataset = errors.New("no dataset loaded for session")
)

// Manager owns session lifecycles. Datasets live in memory, keyed by session;
// the profile and narrative live in the working database for the life of the
// session. Ending or expiring a session destroys all three.
type Manager struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	datasets map[uuid.UUID]*dataset.Dataset
}

func NewManager(db *gorm.DB, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{
		db:       db,
		ttl:      ttl,
		now:      time.Now,
		datasets: make(map[uuid.UUID]*dataset.Dataset),
	}
}

// Create starts a new session.
func (m *Manager) Create(ctx context.Context) (*database.Session, error) {
	m.pruneExpired(ctx)

	now := m.now().UTC()
	rec := &database.Session{Id: uuid.New(), CreationTime: now, LastActiveTime: now}
	if err := m.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return rec, nil
}

// Get returns an active session and refreshes its idle timer.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*database.Session, error) {
	m.pruneExpired(ctx)

	var rec database.Session
	if err := m.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	rec.LastActiveTime = m.now().UTC()
	if err := m.db.WithContext(ctx).Model(&database.Session{Id: id}).
		Update("last_active_time", rec.LastActiveTime).Error; err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	return &rec, nil
}

// SetDataset stores a freshly loaded dataset and its profile on the session,
// replacing any previous dataset and clearing a stale narrative.
func (m *Manager) SetDataset(ctx context.Context, id uuid.UUID, ds *dataset.Dataset, rep *profile.Report) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	updates := map[string]any{
		"dataset_name": sql.NullString{String: ds.Name, Valid: true},
		"dataset_rows": ds.Rows,
		"profile":      datatypes.JSON(raw),
		"narrative":    sql.NullString{},
	}
	res := m.db.WithContext(ctx).Model(&database.Session{Id: id}).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("store profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	m.mu.Lock()
	m.datasets[id] = ds
	m.mu.Unlock()
	return nil
}

// Dataset returns the in-memory dataset owned by the session.
func (m *Manager) Dataset(id uuid.UUID) (*dataset.Dataset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.datasets[id]
	return ds, ok
}

// Profile returns the stored profile of the session's current dataset.
func (m *Manager) Profile(ctx context.Context, id uuid.UUID) (*profile.Report, error) {
	rec, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rec.Profile) == 0 {
		return nil, ErrNoDataset
	}
	var rep profile.Report
	if err := json.Unmarshal(rec.Profile, &rep); err != nil {
		return nil, fmt.Errorf("decode stored profile: %w", err)
	}
	return &rep, nil
}

// SetNarrative stores the generated narrative for the session's dataset.
func (m *Manager) SetNarrative(ctx context.Context, id uuid.UUID, text string) error {
	res := m.db.WithContext(ctx).Model(&database.Session{Id: id}).
		Update("narrative", sql.NullString{String: text, Valid: true})
	if res.Error != nil {
		return fmt.Errorf("store narrative: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Narrative returns the stored narrative, if one was generated.
func (m *Manager) Narrative(ctx context.Context, id uuid.UUID) (string, bool, error) {
	rec, err := m.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	return rec.Narrative.String, rec.Narrative.Valid, nil
}

// End destroys the session, its dataset, and its stored records.
func (m *Manager) End(ctx context.Context, id uuid.UUID) error {
	res := m.db.WithContext(ctx).Delete(&database.Session{Id: id})
	if res.Error != nil {
		return fmt.Errorf("delete session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	m.mu.Lock()
	delete(m.datasets, id)
	m.mu.Unlock()
	return nil
}

// pruneExpired destroys sessions idle past the TTL. Pruning happens lazily on
// access; the service runs no background workers.
func (m *Manager) pruneExpired(ctx context.Context) {
	cutoff := m.now().UTC().Add(-m.ttl)

	var expired []database.Session
	if err := m.db.WithContext(ctx).Select("id").
		Where("last_active_time < ?", cutoff).Find(&expired).Error; err != nil {
		slog.Error("error listing expired sessions", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(expired))
	for i, rec := range expired {
		ids[i] = rec.Id
	}
	if err := m.db.WithContext(ctx).Delete(&database.Session{}, "id IN ?", ids).Error; err != nil {
		slog.Error("error deleting expired sessions", "error", err)
		return
	}

	m.mu.Lock()
	for _, id := range ids {
		delete(m.datasets, id)
	}
	m.mu.Unlock()
	slog.Info("pruned expired sessions", "count", len(ids))
}
