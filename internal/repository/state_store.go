package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"Infinity/internal/domain/models"
	domrepo "Infinity/internal/domain/repository"
	"Infinity/pkg/cache"
	applogger "Infinity/pkg/logger"
)

// Storage keys. Each one is read and written on its own.
const (
	KeyHistory = "history"
	KeyStatus  = "status"
	KeyLang    = "lang"
)

// CacheStateStore implements StateStore on top of a key/value cache.
type CacheStateStore struct {
	c cache.Service
	l *applogger.Logger
}

var _ domrepo.StateStore = (*CacheStateStore)(nil)

func NewCacheStateStore(c cache.Service, l *applogger.Logger) *CacheStateStore {
	return &CacheStateStore{c: c, l: l}
}

// Load reads every key. Missing or malformed keys are left empty; backend failures are
// returned together with whatever could be read.
func (s *CacheStateStore) Load(ctx context.Context) (models.PersistedState, error) {
	var (
		ps   models.PersistedState
		errs []error
	)

	var history []models.Signal
	if err := s.get(ctx, KeyHistory, &history, &errs); err == nil {
		ps.History = history
	}
	// status and lang are stored as bare strings; JSON-quoted values are accepted too.
	var status string
	if err := s.get(ctx, KeyStatus, &status, &errs); err == nil {
		if st := models.UserStatus(bare(status)); st.IsValid() {
			ps.Status = st
		} else {
			s.l.Warn("ignoring unknown status", applogger.String("value", status))
		}
	}
	var lang string
	if err := s.get(ctx, KeyLang, &lang, &errs); err == nil {
		if lg := models.Language(bare(lang)); lg.IsSupported() {
			ps.Lang = lg
		} else {
			s.l.Warn("ignoring unsupported language", applogger.String("value", lang))
		}
	}
	return ps, errors.Join(errs...)
}

func (s *CacheStateStore) get(ctx context.Context, key string, dest interface{}, errs *[]error) error {
	err := s.c.Get(ctx, key, dest)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cache.ErrCacheMiss):
		return err
	case isDecodeError(err):
		s.l.Warn("ignoring malformed state key", applogger.String("key", key), applogger.Error(err))
		return err
	default:
		*errs = append(*errs, fmt.Errorf("load %s: %w", key, err))
		return err
	}
}

func (s *CacheStateStore) SaveHistory(ctx context.Context, history []models.Signal) error {
	if history == nil {
		history = []models.Signal{}
	}
	return s.set(ctx, KeyHistory, history)
}

func (s *CacheStateStore) SaveStatus(ctx context.Context, status models.UserStatus) error {
	return s.set(ctx, KeyStatus, string(status))
}

func (s *CacheStateStore) SaveLang(ctx context.Context, lang models.Language) error {
	return s.set(ctx, KeyLang, string(lang))
}

func (s *CacheStateStore) Close() error { return s.c.Close() }

func (s *CacheStateStore) set(ctx context.Context, key string, value interface{}) error {
	if err := s.c.Set(ctx, key, value, 0); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func bare(v string) string {
	return strings.Trim(strings.TrimSpace(v), `"`)
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
