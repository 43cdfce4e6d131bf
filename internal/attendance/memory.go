package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"weekendschool/internal/apperr"
)

// Fixture is the catalog shape accepted by MemoryStore.Seed and SEED_FILE.
type Fixture struct {
	Courses  []Course  `json:"courses"`
	Classes  []Class   `json:"classes"`
	Sessions []Session `json:"sessions"`
	Students []Student `json:"students"`
}

// LoadFixture reads a JSON fixture from path.
func LoadFixture(path string) (Fixture, error) {
	var fx Fixture
	data, err := os.ReadFile(path)
	if err != nil {
		return fx, fmt.Errorf("read fixture: %w", err)
	}
	if err := json.Unmarshal(data, &fx); err != nil {
		return fx, fmt.Errorf("decode fixture: %w", err)
	}
	return fx, nil
}

// MemoryStore is an in-process Store with the same uniqueness contract as the
// Postgres repository.
type MemoryStore struct {
	mu       sync.RWMutex
	classes  map[string]Class
	sessions map[string]Session
	students map[string]Student
	records  map[Key]Record
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		classes:  make(map[string]Class),
		sessions: make(map[string]Session),
		students: make(map[string]Student),
		records:  make(map[Key]Record),
		now:      time.Now,
	}
}

// Seed loads catalog data. Sessions inherit course and class name from their
// class; students must be assigned to sessions of their own class on the
// matching day.
func (m *MemoryStore) Seed(fx Fixture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range fx.Classes {
		m.classes[c.ID] = c
	}
	for _, s := range fx.Sessions {
		cls, ok := m.classes[s.ClassID]
		if !ok {
			return fmt.Errorf("session %s: unknown class %s", s.ID, s.ClassID)
		}
		s.CourseID = cls.CourseID
		s.ClassName = cls.Name
		m.sessions[s.ID] = s
	}
	for _, st := range fx.Students {
		if err := m.checkAssignment(st, st.SaturdaySession, Saturday); err != nil {
			return err
		}
		if err := m.checkAssignment(st, st.SundaySession, Sunday); err != nil {
			return err
		}
		m.students[st.ID] = st
	}
	return nil
}

func (m *MemoryStore) checkAssignment(st Student, sessionID string, day Day) error {
	if sessionID == "" {
		return nil
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("student %s: unknown session %s", st.ID, sessionID)
	}
	if s.ClassID != st.ClassID || s.Day != day {
		return fmt.Errorf("student %s: session %s is not a %s session of class %s", st.ID, sessionID, day.Title(), st.ClassID)
	}
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: session %s", apperr.ErrNotFound, id)
	}
	return s, nil
}

func (m *MemoryStore) GetStudent(_ context.Context, id string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.students[id]
	if !ok || st.Deleted {
		return Student{}, fmt.Errorf("%w: student %s", apperr.ErrNotFound, id)
	}
	return st, nil
}

func (m *MemoryStore) ListSessions(_ context.Context, f SessionFilter) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for _, s := range m.sessions {
		if f.matches(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassName != out[j].ClassName {
			return out[i].ClassName < out[j].ClassName
		}
		if out[i].Day != out[j].Day {
			return out[i].Day == Saturday
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) ListStudents(_ context.Context, f StudentFilter) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Student
	for _, st := range m.students {
		if f.matches(st) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) GetRecord(_ context.Context, k Key) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[k]
	if !ok {
		return Record{}, fmt.Errorf("%w: attendance %s", apperr.ErrNotFound, k)
	}
	return r, nil
}

func (m *MemoryStore) InsertRecord(_ context.Context, r Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.Key()]; ok {
		return Record{}, apperr.ErrDuplicate
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := m.now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	m.records[r.Key()] = r
	return r, nil
}

func (m *MemoryStore) UpdateRecord(_ context.Context, r Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[r.Key()]
	if !ok {
		return Record{}, fmt.Errorf("%w: attendance %s", apperr.ErrNotFound, r.Key())
	}
	cur.Status = r.Status
	if r.MarkedBy != nil {
		cur.MarkedBy = r.MarkedBy
	}
	cur.UpdatedAt = m.now().UTC()
	m.records[r.Key()] = cur
	return cur, nil
}

func (m *MemoryStore) ListRecords(_ context.Context, f RecordFilter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.records {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Key().String() < out[j].Key().String()
	})
	return out, nil
}

// Len returns the number of ledger records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
