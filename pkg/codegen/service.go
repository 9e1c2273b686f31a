package codegen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/stenoweb/steno/pkg/errors"
	"github.com/stenoweb/steno/pkg/event"
)

// Result is one generated script with its cache identity.
type Result struct {
	Code      string `json:"code"`
	Extension string `json:"extension"`
	Hash      string `json:"hash"`
}

// Service memoizes generation results by request hash. Identical requests
// return the cached script, and concurrent identical requests share one
// render.
type Service struct {
	mu    sync.RWMutex
	cache map[string]Result
	group singleflight.Group
}

func NewService() *Service {
	return &Service{cache: make(map[string]Result)}
}

// Generate renders the event tree for the requested target, serving repeat
// requests from cache. Unknown languages are rejected; everything below that
// degrades inside the render instead of failing.
func (s *Service) Generate(steps []*event.Event, vars []Variable, opts Options) (Result, error) {
	opts.Language = Language(strings.ToLower(string(opts.Language)))
	opts.Framework = Framework(strings.ToLower(string(opts.Framework)))

	if !opts.Language.Known() {
		return Result{}, errors.New(errors.ErrCodeGenLanguage,
			"unknown target language: "+string(opts.Language))
	}

	hash, err := requestHash(steps, vars, opts)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrCodeGenUnsupported, "hashing generation request")
	}

	s.mu.RLock()
	cached, ok := s.cache[hash]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(hash, func() (any, error) {
		res := Result{
			Code:      Generate(steps, vars, opts),
			Extension: FileExtension(opts.Language),
			Hash:      hash,
		}
		s.mu.Lock()
		s.cache[hash] = res
		s.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// requestHash derives a stable identity for one generation request. JSON
// marshaling sorts map keys, so equal inputs always hash equal.
func requestHash(steps []*event.Event, vars []Variable, opts Options) (string, error) {
	payload := struct {
		Steps []*event.Event `json:"steps"`
		Vars  []Variable     `json:"vars"`
		Opts  Options        `json:"opts"`
	}{Steps: steps, Vars: vars, Opts: opts}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
