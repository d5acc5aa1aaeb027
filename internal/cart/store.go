package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/cache"
	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/google/uuid"
)

const DefaultCacheTTL = 300 * time.Second

// Store is the cart record store with a read-through identity cache in front
// of FindCurrent. Every mutation drops the cache entries of the identities it
// touched. Failures are reported as STORAGE_ERROR.
type Store struct {
	repo *Repository
	kv   cache.Store
	ttl  time.Duration
	logg *logger.Logger
}

// NewStore wires the repository and the cache. A nil cache disables caching.
func NewStore(repo *Repository, kv cache.Store, ttl time.Duration, logg *logger.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store{repo: repo, kv: kv, ttl: ttl, logg: logg}
}

// Repository exposes the underlying repository for read-only selection.
func (s *Store) Repository() *Repository {
	return s.repo
}

func cacheKey(identity Identity) string {
	return cache.Key("cart", identity.Key())
}

func (s *Store) FindCurrent(ctx context.Context, identity Identity) (*models.CartRecord, error) {
	if !identity.Usable() {
		return nil, nil
	}
	key := cacheKey(identity)
	if s.kv != nil {
		var cached models.CartRecord
		hit, err := cache.GetJSON(ctx, s.kv, key, &cached)
		if err != nil {
			s.warn(ctx, "cart.cache.read_failed", err)
		} else if hit {
			return &cached, nil
		}
	}

	record, err := s.repo.FindCurrent(ctx, identity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "find current cart")
	}
	if record != nil && s.kv != nil {
		if err := cache.SetJSON(ctx, s.kv, key, record, s.ttl); err != nil {
			s.warn(ctx, "cart.cache.write_failed", err)
		}
	}
	return record, nil
}

func (s *Store) Upsert(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	identity := Identity{SessionKey: record.SessionKey, CustomerID: record.CustomerID}
	saved, err := s.repo.Upsert(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "upsert cart")
	}
	s.invalidate(ctx, identity, identityOf(saved))
	return saved, nil
}

func (s *Store) SetStatus(ctx context.Context, identity Identity, status enums.CartStatus) (*models.CartRecord, error) {
	updated, err := s.repo.SetStatus(ctx, identity, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "set cart status")
	}
	s.invalidate(ctx, identity, identityOf(updated))
	return updated, nil
}

// UpdateContact stores billing contact details on the active record.
func (s *Store) UpdateContact(ctx context.Context, identity Identity, email, name string) (*models.CartRecord, error) {
	updated, err := s.repo.UpdateContact(ctx, identity, email, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update cart contact")
	}
	s.invalidate(ctx, identity, identityOf(updated))
	return updated, nil
}

func (s *Store) BatchSetStatus(ctx context.Context, ids []uuid.UUID, status enums.CartStatus, from enums.CartStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	identities, err := s.repo.IdentitiesByID(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load cart identities")
	}
	moved, err := s.repo.BatchSetStatus(ctx, ids, status, from)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "batch set cart status")
	}
	s.invalidate(ctx, identities...)
	return moved, nil
}

func (s *Store) ListInWindow(ctx context.Context, status enums.CartStatus, olderOrEqual, newerThan time.Time) ([]models.CartRecord, error) {
	rows, err := s.repo.ListInWindow(ctx, status, olderOrEqual, newerThan)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list carts in window")
	}
	return rows, nil
}

// ArchiveOlderThan only moves inactive rows, which are never cached.
func (s *Store) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	moved, err := s.repo.ArchiveOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "archive carts")
	}
	return moved, nil
}

func (s *Store) PurgeArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	purged, err := s.repo.PurgeArchiveOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "purge cart archive")
	}
	return purged, nil
}

func (s *Store) RestoreArchivedSince(ctx context.Context, cutoff time.Time) (int64, error) {
	restored, err := s.repo.RestoreArchivedSince(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "restore archived carts")
	}
	return restored, nil
}

func (s *Store) invalidate(ctx context.Context, identities ...Identity) {
	if s.kv == nil {
		return
	}
	seen := map[string]struct{}{}
	keys := make([]string, 0, len(identities)*2)
	add := func(identity Identity) {
		if !identity.Usable() {
			return
		}
		key := cacheKey(identity)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for _, identity := range identities {
		add(identity)
		if guest, ok := identity.sessionOnly(); ok {
			add(guest)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		s.warn(ctx, "cart.cache.invalidate_failed", err)
	}
}

func (s *Store) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}

func identityOf(record *models.CartRecord) Identity {
	if record == nil {
		return Identity{}
	}
	return Identity{SessionKey: record.SessionKey, CustomerID: record.CustomerID}
}
