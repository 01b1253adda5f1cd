// README: Driver service handles registration, lookup and profile/status updates.
package driver

import (
	"context"
	"strings"
	"time"
)

type Service struct {
	store  Store
	cities map[string]bool
	now    func() time.Time
}

// NewService builds a driver service. An empty cities list accepts any city.
func NewService(store Store, cities []string) *Service {
	set := make(map[string]bool, len(cities))
	for _, c := range cities {
		set[c] = true
	}
	return &Service{store: store, cities: set, now: time.Now}
}

type RegisterCommand struct {
	Username      string
	FirstName     string
	LastName      string
	Age           int
	City          string
	TransportType string
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Driver, error) {
	username := strings.TrimSpace(cmd.Username)
	if username == "" {
		return nil, ErrBadRequest
	}
	if cmd.Age < MinAge || cmd.Age > MaxAge {
		return nil, ErrBadRequest
	}
	if !ValidTransportType(cmd.TransportType) || !s.knownCity(cmd.City) {
		return nil, ErrBadRequest
	}

	d := &Driver{
		Username:      username,
		FirstName:     strings.TrimSpace(cmd.FirstName),
		LastName:      strings.TrimSpace(cmd.LastName),
		Age:           cmd.Age,
		City:          cmd.City,
		TransportType: cmd.TransportType,
		Status:        StatusAvailable,
		Rating:        DefaultRating,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, username string) (*Driver, error) {
	return s.store.Get(ctx, username)
}

func (s *Service) List(ctx context.Context) ([]*Driver, error) {
	return s.store.List(ctx)
}

func (s *Service) Update(ctx context.Context, username string, u Update) (*Driver, error) {
	if u.Empty() {
		return nil, ErrBadRequest
	}
	if u.Status != nil && !ValidStatus(*u.Status) {
		return nil, ErrBadRequest
	}
	if u.Age != nil && (*u.Age < MinAge || *u.Age > MaxAge) {
		return nil, ErrBadRequest
	}
	if u.TransportType != nil && !ValidTransportType(*u.TransportType) {
		return nil, ErrBadRequest
	}
	if u.City != nil && !s.knownCity(*u.City) {
		return nil, ErrBadRequest
	}
	return s.store.Update(ctx, username, u)
}

func (s *Service) knownCity(c string) bool {
	if len(s.cities) == 0 {
		return true
	}
	return s.cities[c]
}
