package settings

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Ning0612/typnote/internal/domain"
)

// Keys under which settings are stored
const (
	KeySpaces     = "spaces"
	KeyLastActive = "lastOpenSpace"
	KeyFavorites  = "favorites"
	KeyUser       = "user"
)

// Service gives typed access to the settings in a Store. Reading a key that
// was never written stores and returns its default. Collections are always
// written back whole.
type Service struct {
	store Store
	mu    sync.Mutex
}

// NewService creates a service over store
func NewService(store Store) *Service {
	return &Service{store: store}
}

// load decodes key into out, first writing def when the key is absent
func (s *Service) load(key string, def any, out any) error {
	raw, ok, err := s.store.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		if raw, err = json.Marshal(def); err != nil {
			return fmt.Errorf("failed to encode default %s: %w", key, err)
		}
		if err := s.store.Set(key, raw); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return nil
}

func (s *Service) save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}
	return s.store.Set(key, raw)
}

// Spaces returns the registered spaces in order
func (s *Service) Spaces() ([]domain.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spaces()
}

func (s *Service) spaces() ([]domain.Space, error) {
	spaces := []domain.Space{}
	if err := s.load(KeySpaces, spaces, &spaces); err != nil {
		return nil, err
	}
	if spaces == nil {
		spaces = []domain.Space{}
	}
	return spaces, nil
}

// SetSpaces replaces the whole collection
func (s *Service) SetSpaces(spaces []domain.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSpaces(spaces)
}

func (s *Service) setSpaces(spaces []domain.Space) error {
	seen := make(map[string]bool, len(spaces))
	out := make([]domain.Space, 0, len(spaces))
	for _, sp := range spaces {
		if err := sp.Validate(); err != nil {
			return err
		}
		if seen[sp.Name] {
			return fmt.Errorf("%w: space %s", domain.ErrAlreadyExists, sp.Name)
		}
		seen[sp.Name] = true
		out = append(out, sp.WithDefaults())
	}
	return s.save(KeySpaces, out)
}

// AddSpace appends a space; names must be unique
func (s *Service) AddSpace(space domain.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spaces, err := s.spaces()
	if err != nil {
		return err
	}
	return s.setSpaces(append(spaces, space))
}

// RemoveSpace drops the named space and keeps the last-active index
// pointing at a valid space, or 0 when none remain
func (s *Service) RemoveSpace(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spaces, err := s.spaces()
	if err != nil {
		return err
	}
	idx := indexOf(spaces, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrSpaceNotFound, name)
	}

	active, err := s.lastActive()
	if err != nil {
		return err
	}

	spaces = append(spaces[:idx], spaces[idx+1:]...)
	if err := s.setSpaces(spaces); err != nil {
		return err
	}

	switch {
	case active > idx:
		active--
	case active >= len(spaces):
		active = len(spaces) - 1
	}
	if active < 0 {
		active = 0
	}
	return s.save(KeyLastActive, active)
}

// SpaceIndex returns the position of the named space
func (s *Service) SpaceIndex(name string) (int, error) {
	spaces, err := s.Spaces()
	if err != nil {
		return 0, err
	}
	idx := indexOf(spaces, name)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrSpaceNotFound, name)
	}
	return idx, nil
}

func indexOf(spaces []domain.Space, name string) int {
	for i, sp := range spaces {
		if sp.Name == name {
			return i
		}
	}
	return -1
}

// LastActive returns the index of the last opened space (default 0)
func (s *Service) LastActive() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive()
}

func (s *Service) lastActive() (int, error) {
	var idx int
	if err := s.load(KeyLastActive, 0, &idx); err != nil {
		return 0, err
	}
	return idx, nil
}

// SetLastActive records the opened space; the index must be in range
func (s *Service) SetLastActive(idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spaces, err := s.spaces()
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(spaces) {
		return fmt.Errorf("%w: space index %d (have %d)", domain.ErrNotFound, idx, len(spaces))
	}
	return s.save(KeyLastActive, idx)
}

// ActiveSpace returns the space the last-active index refers to.
// A stale index falls back to the first space.
func (s *Service) ActiveSpace() (domain.Space, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spaces, err := s.spaces()
	if err != nil {
		return domain.Space{}, 0, err
	}
	if len(spaces) == 0 {
		return domain.Space{}, 0, domain.ErrNoActiveSpace
	}

	idx, err := s.lastActive()
	if err != nil {
		return domain.Space{}, 0, err
	}
	if idx < 0 || idx >= len(spaces) {
		idx = 0
	}
	return spaces[idx], idx, nil
}

// Favorites returns the pinned documents
func (s *Service) Favorites() ([]domain.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites()
}

func (s *Service) favorites() ([]domain.Favorite, error) {
	favs := []domain.Favorite{}
	if err := s.load(KeyFavorites, favs, &favs); err != nil {
		return nil, err
	}
	if favs == nil {
		favs = []domain.Favorite{}
	}
	return favs, nil
}

// AddFavorite pins a document; names must be unique
func (s *Service) AddFavorite(fav domain.Favorite) error {
	if err := fav.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	favs, err := s.favorites()
	if err != nil {
		return err
	}
	for _, f := range favs {
		if f.Name == fav.Name {
			return fmt.Errorf("%w: favorite %s", domain.ErrAlreadyExists, fav.Name)
		}
	}
	return s.save(KeyFavorites, append(favs, fav))
}

// RemoveFavorite unpins the favorite with the given name
func (s *Service) RemoveFavorite(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs, err := s.favorites()
	if err != nil {
		return err
	}
	out := favs[:0]
	for _, f := range favs {
		if f.Name != name {
			out = append(out, f)
		}
	}
	if len(out) == len(favs) {
		return fmt.Errorf("%w: favorite %s", domain.ErrNotFound, name)
	}
	return s.save(KeyFavorites, out)
}

// User returns the local profile
func (s *Service) User() (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := domain.DefaultUser()
	if err := s.load(KeyUser, user, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// SetUser replaces the local profile
func (s *Service) SetUser(user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(KeyUser, user)
}
