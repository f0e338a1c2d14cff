package access

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pgrepo "github.com/joinua/JR-Foxy/internal/repo/postgres"
)

// Levels gate who may operate the moderation surface.
const (
	LevelNone      = 0
	LevelObserver  = 1 // /winfo
	LevelReviewer  = 2 // admission decisions
	LevelModerator = 3 // !warn / !unwarn
	LevelOwner     = 4 // roster management
)

type adminStore interface {
	Upsert(ctx context.Context, userID int64, firstName, lastName, username string) error
	SetLevel(ctx context.Context, userID int64, level int) (bool, error)
	Delete(ctx context.Context, userID int64) (bool, error)
	GetLevel(ctx context.Context, userID int64) (int, error)
	List(ctx context.Context) ([]pgrepo.AdminRecord, error)
}

type levelCache interface {
	Get(ctx context.Context, userID int64) (int, bool, error)
	Set(ctx context.Context, userID int64, level int) error
	Invalidate(ctx context.Context, userID int64) error
}

// Service is the authorization collaborator: it answers "what level does this
// user hold" for command handlers and manages the admin roster.
type Service struct {
	store  adminStore
	cache  levelCache
	logger *zap.Logger
}

func NewService(store adminStore, cache levelCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// GetLevel returns the user's level, 0 for non-admins. Cache failures degrade
// to a direct store read instead of blocking the command.
func (s *Service) GetLevel(ctx context.Context, userID int64) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("admin store is not configured")
	}

	if s.cache != nil {
		level, found, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("admin level cache read failed", zap.Error(err), zap.Int64("user_id", userID))
		} else if found {
			return level, nil
		}
	}

	level, err := s.store.GetLevel(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, level); err != nil {
			s.logger.Warn("admin level cache write failed", zap.Error(err), zap.Int64("user_id", userID))
		}
	}

	return level, nil
}

func (s *Service) Add(ctx context.Context, userID int64, firstName, lastName, username string) error {
	if s.store == nil {
		return fmt.Errorf("admin store is not configured")
	}

	if err := s.store.Upsert(ctx, userID, firstName, lastName, username); err != nil {
		return err
	}

	s.dropCached(ctx, userID)
	return nil
}

func (s *Service) SetLevel(ctx context.Context, userID int64, level int) (bool, error) {
	if s.store == nil {
		return false, fmt.Errorf("admin store is not configured")
	}
	if level < LevelObserver || level > LevelOwner {
		return false, fmt.Errorf("admin level must be between %d and %d", LevelObserver, LevelOwner)
	}

	updated, err := s.store.SetLevel(ctx, userID, level)
	if err != nil {
		return false, err
	}

	s.dropCached(ctx, userID)
	return updated, nil
}

func (s *Service) Remove(ctx context.Context, userID int64) (bool, error) {
	if s.store == nil {
		return false, fmt.Errorf("admin store is not configured")
	}

	deleted, err := s.store.Delete(ctx, userID)
	if err != nil {
		return false, err
	}

	s.dropCached(ctx, userID)
	return deleted, nil
}

func (s *Service) List(ctx context.Context) ([]pgrepo.AdminRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("admin store is not configured")
	}

	return s.store.List(ctx)
}

// BootstrapOwner makes sure the configured owner holds the top level.
func (s *Service) BootstrapOwner(ctx context.Context, ownerID int64) error {
	if ownerID == 0 {
		return nil
	}

	if err := s.Add(ctx, ownerID, "", "", ""); err != nil {
		return fmt.Errorf("bootstrap owner admin: %w", err)
	}
	if _, err := s.SetLevel(ctx, ownerID, LevelOwner); err != nil {
		return fmt.Errorf("bootstrap owner level: %w", err)
	}

	return nil
}

func (s *Service) dropCached(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("admin level cache invalidation failed", zap.Error(err), zap.Int64("user_id", userID))
	}
}
