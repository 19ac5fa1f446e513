package shareconf

import (
	"context"
	"os"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/viper"

	"github.com/farmkeep/farmkeep/internal/identity"
)

// FieldValidator checks the parsed config's required fields synchronously.
type FieldValidator interface {
	ValidateFields(cfg Config) error
}

// AllocationValidator checks the requested storage allocation. The check may
// involve I/O (disk probing, remote quota lookups) and is treated as
// asynchronous by callers.
type AllocationValidator interface {
	ValidateAllocation(ctx context.Context, cfg Config) error
}

// ActiveChecker rejects ids that are currently active in the registry.
// Satisfied by *registry.Registry; the returned error is the registry's
// duplicate-share error.
type ActiveChecker interface {
	CheckAvailable(id string) error
}

// Loader runs the validated startup pipeline for a share config document.
// Each stage short-circuits on failure.
type Loader struct {
	Fields     FieldValidator
	Allocation AllocationValidator
	Registry   ActiveChecker
}

// NewLoader returns a Loader with the default validators.
func NewLoader(reg ActiveChecker) *Loader {
	return &Loader{
		Fields:     DefaultFieldValidator{},
		Allocation: DefaultAllocationValidator{},
		Registry:   reg,
	}
}

// Load reads, parses, and validates the config at path and derives the
// share's node id. The registry duplicate check rejects ids whose existing
// record is not stopped; a stopped share may be re-added under its own id.
func (l *Loader) Load(ctx context.Context, path string) (Config, string, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, "", &ReadError{Path: path, Err: err}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, "", &ParseError{Path: path, Err: err}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", &ParseError{Path: path, Err: err}
	}

	if l.Fields != nil {
		if err := l.Fields.ValidateFields(cfg); err != nil {
			return Config{}, "", err
		}
	}

	id, err := identity.DeriveID(cfg.NetworkPrivateKey)
	if err != nil {
		return Config{}, "", &ValidationError{Msg: err.Error()}
	}

	if l.Registry != nil {
		if err := l.Registry.CheckAvailable(id); err != nil {
			return Config{}, "", err
		}
	}

	if l.Allocation != nil {
		// No timeout of our own here. TODO: bound the allocation round trip;
		// a non-responding validator stalls Start until ctx is canceled.
		if err := l.Allocation.ValidateAllocation(ctx, cfg); err != nil {
			return Config{}, "", &AllocationError{Msg: lowerFirst(err.Error())}
		}
	}
	return cfg, id, nil
}

// lowerFirst lower-cases only the leading rune of s. The allocation
// validator's message is otherwise preserved as-is.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}
