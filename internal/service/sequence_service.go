package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/repository"
	"github.com/GTDGit/jewel_catalog/internal/utils"
)

// SequenceStore serializes allocation per sequence across processes.
// Implemented by repository.SequenceRepository.
type SequenceStore interface {
	WithSequenceLock(ctx context.Context, name string, fn func(tx repository.SequenceTx) error) error
}

// SequenceConfig tunes the allocator.
type SequenceConfig struct {
	MaxAttempts    int
	OrderScanLimit int
}

type sequenceDef struct {
	prefix    string
	scanLimit int // 0 scans everything
}

// SequenceService issues unique order and custom job numbers.
// Within a process, calls for the same name are serialized by a mutex and
// the highest issued value is remembered, so a bounded scan never moves the
// counter backwards. Uniqueness itself comes from the reservation insert.
type SequenceService struct {
	store       SequenceStore
	maxAttempts int
	defs        map[models.SequenceName]sequenceDef

	mu        sync.Mutex
	locks     map[models.SequenceName]*sync.Mutex
	highWater map[models.SequenceName]int64
}

// NewSequenceService constructs a SequenceService.
func NewSequenceService(store SequenceStore, cfg SequenceConfig) *SequenceService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 50
	}
	if cfg.OrderScanLimit <= 0 {
		cfg.OrderScanLimit = 100
	}
	return &SequenceService{
		store:       store,
		maxAttempts: cfg.MaxAttempts,
		defs: map[models.SequenceName]sequenceDef{
			models.SequenceOrder:     {prefix: "ORD", scanLimit: cfg.OrderScanLimit},
			models.SequenceCustomJob: {prefix: "custom"},
		},
		locks:     make(map[models.SequenceName]*sync.Mutex),
		highWater: make(map[models.SequenceName]int64),
	}
}

// Next reserves and returns the next identifier of the named sequence.
func (s *SequenceService) Next(ctx context.Context, name models.SequenceName) (string, error) {
	def, err := s.def(name)
	if err != nil {
		return "", err
	}

	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()

	var (
		issued string
		value  int64
	)
	err = s.store.WithSequenceLock(ctx, string(name), func(tx repository.SequenceTx) error {
		ids, err := tx.RecentIdentifiers(ctx, string(name), def.prefix, def.scanLimit)
		if err != nil {
			return err
		}
		candidate := max(maxSuffix(ids, def.prefix), s.getHighWater(name)) + 1

		for attempt := 0; attempt < s.maxAttempts; attempt, candidate = attempt+1, candidate+1 {
			id := def.prefix + strconv.FormatInt(candidate, 10)
			exists, err := tx.Exists(ctx, id)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			err = tx.Reserve(ctx, string(name), id)
			if errors.Is(err, repository.ErrIdentifierTaken) {
				log.Debug().Str("sequence", string(name)).Str("identifier", id).Msg("identifier taken concurrently, retrying")
				continue
			}
			if err != nil {
				return err
			}
			issued, value = id, candidate
			return nil
		}
		return fmt.Errorf("%w: no free %s identifier after %d attempts", utils.ErrSequenceContention, name, s.maxAttempts)
	})
	if errors.Is(err, repository.ErrLockTimeout) {
		return "", fmt.Errorf("%w: %w", utils.ErrSequenceContention, err)
	}
	if err != nil {
		return "", err
	}

	s.setHighWater(name, value)
	log.Info().Str("sequence", string(name)).Str("identifier", issued).Msg("sequence identifier issued")
	return issued, nil
}

// Reconcile scans every issued identifier of the sequence, seeds the
// in-process high-water mark and returns the highest value found.
func (s *SequenceService) Reconcile(ctx context.Context, name models.SequenceName) (int64, error) {
	def, err := s.def(name)
	if err != nil {
		return 0, err
	}

	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()

	var highest int64
	err = s.store.WithSequenceLock(ctx, string(name), func(tx repository.SequenceTx) error {
		ids, err := tx.RecentIdentifiers(ctx, string(name), def.prefix, 0)
		if err != nil {
			return err
		}
		highest = maxSuffix(ids, def.prefix)
		return nil
	})
	if errors.Is(err, repository.ErrLockTimeout) {
		return 0, fmt.Errorf("%w: %w", utils.ErrSequenceContention, err)
	}
	if err != nil {
		return 0, err
	}

	s.setHighWater(name, highest)
	log.Info().Str("sequence", string(name)).Int64("highest", highest).Msg("sequence reconciled")
	return highest, nil
}

// Prefix returns the identifier prefix of a sequence.
func (s *SequenceService) Prefix(name models.SequenceName) (string, error) {
	def, err := s.def(name)
	return def.prefix, err
}

func (s *SequenceService) def(name models.SequenceName) (sequenceDef, error) {
	def, ok := s.defs[name]
	if !ok {
		return sequenceDef{}, fmt.Errorf("%w: %q", utils.ErrUnknownSequence, name)
	}
	return def, nil
}

func (s *SequenceService) lockFor(name models.SequenceName) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *SequenceService) getHighWater(name models.SequenceName) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highWater[name]
}

// setHighWater only moves the mark forward.
func (s *SequenceService) setHighWater(name models.SequenceName, v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v > s.highWater[name] {
		s.highWater[name] = v
	}
}

// maxSuffix returns the largest numeric suffix among ids of the form prefix+digits.
func maxSuffix(ids []string, prefix string) int64 {
	var highest int64
	for _, id := range ids {
		digits, ok := strings.CutPrefix(id, prefix)
		if !ok || digits == "" {
			continue
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}
