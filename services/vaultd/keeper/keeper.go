package keeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/holiman/uint256"

	"acre/core"
	"acre/crypto"
)

// Allocator is the node surface the keeper drives.
type Allocator interface {
	Allocate(caller crypto.Address) (*uint256.Int, *core.Receipt, error)
}

// Keeper periodically moves idle vault assets into the yield venue.
type Keeper struct {
	node     Allocator
	identity crypto.Address
	interval time.Duration
	logger   *slog.Logger
}

// New constructs a keeper acting as identity, which must hold the
// allocator's maintainer role.
func New(node Allocator, identity crypto.Address, interval time.Duration, logger *slog.Logger) (*Keeper, error) {
	if node == nil {
		return nil, errors.New("keeper: node required")
	}
	if identity.IsZero() {
		return nil, errors.New("keeper: identity required")
	}
	if interval <= 0 {
		return nil, errors.New("keeper: interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Keeper{node: node, identity: identity, interval: interval, logger: logger}, nil
}

// Run allocates once immediately and then on every tick until ctx is done.
func (k *Keeper) Run(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		k.Tick()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick performs a single allocation pass and reports the amount moved.
func (k *Keeper) Tick() *uint256.Int {
	moved, receipt, err := k.node.Allocate(k.identity)
	if err != nil {
		k.logger.Error("allocate failed", slog.String("keeper", k.identity.String()), slog.Any("error", err))
		return new(uint256.Int)
	}
	if moved == nil || moved.IsZero() {
		return new(uint256.Int)
	}
	k.logger.Info("allocated idle assets",
		slog.String("amount", moved.Dec()),
		slog.String("receipt", receipt.ID))
	return moved
}
