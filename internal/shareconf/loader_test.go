package shareconf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validPayout is a well-formed base58check address.
const validPayout = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "share.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfigJSON(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf(`{
  "networkPrivateKey": "%s",
  "paymentAddress": "%s",
  "storagePath": "%s",
  "storageAllocation": "1KB"
}`, strings.Repeat("11", 32), validPayout, t.TempDir())
}

type allowAll struct{}

func (allowAll) ValidateAllocation(context.Context, Config) error { return nil }

type rejectAllocation struct{ msg string }

func (r rejectAllocation) ValidateAllocation(context.Context, Config) error {
	return errors.New(r.msg)
}

type alwaysAvailable struct{}

func (alwaysAvailable) CheckAvailable(string) error { return nil }

type neverAvailable struct{ err error }

func (n neverAvailable) CheckAvailable(string) error { return n.err }

func newTestLoader() *Loader {
	return &Loader{
		Fields:     DefaultFieldValidator{},
		Allocation: allowAll{},
		Registry:   alwaysAvailable{},
	}
}

func TestLoadSuccess(t *testing.T) {
	path := writeConfig(t, validConfigJSON(t))
	cfg, id, err := newTestLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, id, 40)
	assert.Equal(t, validPayout, cfg.PaymentAddress)
	assert.Equal(t, "1KB", cfg.StorageAllocation)
}

func TestLoadDeterministicID(t *testing.T) {
	path := writeConfig(t, validConfigJSON(t))
	l := newTestLoader()
	_, id1, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	_, id2, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	_, _, err := newTestLoader().Load(context.Background(), path)
	var re *ReadError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "failed to read config at "+path, err.Error())
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"networkPrivateKey": `)
	_, _, err := newTestLoader().Load(context.Background(), path)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "failed to parse config at "+path, err.Error())
}

func TestLoadInvalidPayoutAddress(t *testing.T) {
	body := strings.Replace(validConfigJSON(t), validPayout, "not-an-address", 1)
	path := writeConfig(t, body)
	_, _, err := newTestLoader().Load(context.Background(), path)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "invalid payout address", err.Error())
}

func TestLoadDuplicateShare(t *testing.T) {
	path := writeConfig(t, validConfigJSON(t))
	l := newTestLoader()
	want := errors.New("share xyz is already running")
	l.Registry = neverAvailable{err: want}
	_, _, err := l.Load(context.Background(), path)
	assert.Equal(t, want, err)
}

func TestLoadAllocationErrorLowerCasesLeadingRune(t *testing.T) {
	path := writeConfig(t, validConfigJSON(t))
	l := newTestLoader()
	l.Allocation = rejectAllocation{msg: "Not enough free disk space for 2TB"}
	_, _, err := l.Load(context.Background(), path)
	var ae *AllocationError
	require.True(t, errors.As(err, &ae))
	// Only the first rune changes case; the rest is preserved verbatim.
	assert.Equal(t, "not enough free disk space for 2TB", err.Error())
}

func TestLowerFirst(t *testing.T) {
	assert.Equal(t, "", lowerFirst(""))
	assert.Equal(t, "abc", lowerFirst("Abc"))
	assert.Equal(t, "aBC", lowerFirst("ABC"))
	assert.Equal(t, "already lower", lowerFirst("already lower"))
	assert.Equal(t, "ärger", lowerFirst("Ärger"))
}

func TestDefaultAllocationValidator(t *testing.T) {
	dir := t.TempDir()
	v := DefaultAllocationValidator{}

	ok := Config{StoragePath: dir, StorageAllocation: "1KB"}
	assert.NoError(t, v.ValidateAllocation(context.Background(), ok))

	huge := Config{StoragePath: dir, StorageAllocation: "100000TB"}
	err := v.ValidateAllocation(context.Background(), huge)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds free disk space")

	bad := Config{StoragePath: dir, StorageAllocation: "lots"}
	assert.Error(t, v.ValidateAllocation(context.Background(), bad))

	missing := Config{StoragePath: filepath.Join(dir, "absent"), StorageAllocation: "1KB"}
	assert.Error(t, v.ValidateAllocation(context.Background(), missing))
}

func TestDefaultFieldValidator(t *testing.T) {
	base := Config{
		NetworkPrivateKey: strings.Repeat("11", 32),
		PaymentAddress:    validPayout,
		StoragePath:       "/tmp",
		StorageAllocation: "5GB",
	}
	assert.NoError(t, DefaultFieldValidator{}.ValidateFields(base))

	noKey := base
	noKey.NetworkPrivateKey = ""
	assert.Error(t, DefaultFieldValidator{}.ValidateFields(noKey))

	noPath := base
	noPath.StoragePath = ""
	assert.Error(t, DefaultFieldValidator{}.ValidateFields(noPath))

	noAlloc := base
	noAlloc.StorageAllocation = ""
	assert.Error(t, DefaultFieldValidator{}.ValidateFields(noAlloc))
}
