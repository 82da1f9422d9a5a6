package profile

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/s3hub/internal/errs"
)

// Fixed blob keys. The profile list and the active selection are
// persisted as two separate records.
const (
	keyProfiles = "connections"
	keyActive   = "currentConnection"
)

// Store owns the profile list and the active-profile selection.
// It is safe for concurrent use.
type Store struct {
	blobs Blobs

	mu       sync.Mutex
	profiles []Profile
	activeID string

	now func() time.Time
}

// NewStore loads any persisted profiles from blobs and returns a Store.
func NewStore(blobs Blobs) (*Store, error) {
	s := &Store{blobs: blobs, now: time.Now}

	if data, ok, err := blobs.Get(keyProfiles); err != nil {
		return nil, err
	} else if ok {
		if err := json.Unmarshal(data, &s.profiles); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "corrupt profile store", err)
		}
	}

	if data, ok, err := blobs.Get(keyActive); err != nil {
		return nil, err
	} else if ok {
		var active Profile
		if err := json.Unmarshal(data, &active); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "corrupt active profile record", err)
		}
		s.activeID = active.ID
	}

	return s, nil
}

// Add creates a profile from params, persists it, and makes it the
// active profile, mirroring the login flow: a freshly validated
// connection becomes current.
func (s *Store) Add(params Params) (Profile, error) {
	if params.AccessKey == "" || params.SecretKey == "" {
		return Profile{}, errs.New(errs.ErrKindInvalidInput, "access key and secret key are required")
	}

	p := Profile{
		ID:        uuid.NewString(),
		Name:      params.Name,
		AccessKey: params.AccessKey,
		SecretKey: params.SecretKey,
		Service:   params.Service,
		Region:    params.Region,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles = append(s.profiles, p)
	if err := s.persistProfiles(); err != nil {
		s.profiles = s.profiles[:len(s.profiles)-1]
		return Profile{}, err
	}
	if err := s.setActiveLocked(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Delete removes the profile with id. When the active profile is
// deleted, the first remaining profile becomes active, or the active
// selection is cleared when none remain.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := -1
	for i, p := range s.profiles {
		if p.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return errs.New(errs.ErrKindNotFound, "profile not found")
	}

	s.profiles = append(s.profiles[:index], s.profiles[index+1:]...)
	if err := s.persistProfiles(); err != nil {
		return err
	}

	if s.activeID == id {
		if len(s.profiles) > 0 {
			return s.setActiveLocked(s.profiles[0])
		}
		s.activeID = ""
		return s.blobs.Delete(keyActive)
	}
	return nil
}

// SetActive makes the profile with id the active one.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.profiles {
		if p.ID == id {
			return s.setActiveLocked(p)
		}
	}
	return errs.New(errs.ErrKindNotFound, "profile not found")
}

// Active returns the active profile, or ok=false when none is set.
func (s *Store) Active() (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.profiles {
		if p.ID == s.activeID {
			return p, true
		}
	}
	return Profile{}, false
}

// Get returns the profile with id.
func (s *Store) Get(id string) (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// List returns all profiles in creation order.
func (s *Store) List() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Profile(nil), s.profiles...)
}

func (s *Store) persistProfiles() error {
	data, err := json.Marshal(s.profiles)
	if err != nil {
		return err
	}
	return s.blobs.Set(keyProfiles, data)
}

func (s *Store) setActiveLocked(p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.blobs.Set(keyActive, data); err != nil {
		return err
	}
	s.activeID = p.ID
	return nil
}
