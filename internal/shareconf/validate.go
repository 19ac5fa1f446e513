package shareconf

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"
)

// payoutAddressRe matches base58check payout addresses (no 0, O, I, l).
var payoutAddressRe = regexp.MustCompile(`^[13][1-9A-HJ-NP-Za-km-z]{25,34}$`)

// DefaultFieldValidator checks the fields the supervisor requires before a
// worker may be launched.
type DefaultFieldValidator struct{}

func (DefaultFieldValidator) ValidateFields(cfg Config) error {
	if !payoutAddressRe.MatchString(cfg.PaymentAddress) {
		return &ValidationError{Msg: "invalid payout address"}
	}
	if cfg.NetworkPrivateKey == "" {
		return &ValidationError{Msg: "missing network private key"}
	}
	if cfg.StoragePath == "" {
		return &ValidationError{Msg: "missing storage path"}
	}
	if cfg.StorageAllocation == "" {
		return &ValidationError{Msg: "missing storage allocation"}
	}
	return nil
}

// DefaultAllocationValidator parses the allocation size and checks it
// against the free space on the volume backing the share's storage path.
type DefaultAllocationValidator struct{}

func (DefaultAllocationValidator) ValidateAllocation(ctx context.Context, cfg Config) error {
	bytes, err := humanize.ParseBytes(cfg.StorageAllocation)
	if err != nil {
		return fmt.Errorf("Invalid storage allocation %q: %w", cfg.StorageAllocation, err)
	}
	if bytes == 0 {
		return fmt.Errorf("Invalid storage allocation: must be greater than zero")
	}
	if _, err := os.Stat(cfg.StoragePath); err != nil {
		return fmt.Errorf("Storage path %s is not accessible", cfg.StoragePath)
	}
	usage, err := disk.UsageWithContext(ctx, cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("Cannot determine free space for %s: %w", cfg.StoragePath, err)
	}
	if bytes > usage.Free {
		return fmt.Errorf("Invalid storage allocation: %s exceeds free disk space %s",
			humanize.IBytes(bytes), humanize.IBytes(usage.Free))
	}
	return nil
}
