package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"acre/core/events"
	"acre/core/state"
	"acre/core/types"
	"acre/crypto"
	"acre/native/allocator"
	nativecommon "acre/native/common"
	"acre/native/portal"
	"acre/native/token"
	"acre/native/vault"
	"acre/observability"
	"acre/storage"
)

const tracerName = "acre/core"

// ErrPanic wraps a panic recovered while applying an operation.
var ErrPanic = errors.New("core: operation panicked")

// GenesisBalance seeds the asset ledger at construction.
type GenesisBalance struct {
	Account crypto.Address
	Amount  *uint256.Int
}

// Config wires the engine components together.
type Config struct {
	Vault            vault.Config
	AllocatorOwner   crypto.Address
	Maintainers      []crypto.Address
	VenueGranularity *uint256.Int
	Balances         []GenesisBalance
}

// Receipt describes a committed operation.
type Receipt struct {
	ID        string
	Operation string
	Events    []*types.Event
}

// Node is the host that serializes operations against the engine and makes
// each of them atomic: a failed operation leaves no trace in any component.
type Node struct {
	mu        sync.Mutex
	journal   *state.Journal
	buffer    *events.Buffer
	pauses    *nativecommon.Pauses
	asset     *token.Ledger
	venue     *portal.Engine
	vault     *vault.Engine
	allocator *allocator.Engine
	db        storage.Database
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *observability.VaultMetrics
}

// NewNode constructs every component from cfg and installs the allocator as
// the vault's dispatcher.
func NewNode(cfg Config) (*Node, error) {
	journal := state.NewJournal()
	buffer := events.NewBuffer(journal)
	pauses := nativecommon.NewPauses(journal)

	symbol := cfg.Vault.AssetSymbol
	if symbol == "" {
		symbol = "tBTC"
		cfg.Vault.AssetSymbol = symbol
	}
	asset := token.NewLedger(symbol, journal)
	asset.SetEmitter(buffer)

	venue := portal.NewEngine(asset, journal)
	venue.SetEmitter(buffer)
	venue.SetWithdrawalGranularity(cfg.VenueGranularity)

	v, err := vault.NewEngine(cfg.Vault, asset, journal)
	if err != nil {
		return nil, fmt.Errorf("core: vault: %w", err)
	}
	v.SetPauses(pauses)
	v.SetEmitter(buffer)

	allocOwner := cfg.AllocatorOwner
	if allocOwner.IsZero() {
		allocOwner = cfg.Vault.Owner
	}
	alloc, err := allocator.NewEngine(allocator.Config{
		Owner:       allocOwner,
		Vault:       v.Address(),
		Maintainers: cfg.Maintainers,
	}, asset, venue, journal)
	if err != nil {
		return nil, fmt.Errorf("core: allocator: %w", err)
	}
	alloc.SetEmitter(buffer)

	for _, bal := range cfg.Balances {
		if err := asset.Mint(bal.Account, bal.Amount); err != nil {
			return nil, fmt.Errorf("core: genesis balance for %s: %w", bal.Account, err)
		}
	}
	if err := v.UpdateDispatcher(cfg.Vault.Owner, alloc); err != nil {
		return nil, fmt.Errorf("core: install dispatcher: %w", err)
	}
	buffer.Drain()
	journal.Reset()

	return &Node{
		journal:   journal,
		buffer:    buffer,
		pauses:    pauses,
		asset:     asset,
		venue:     venue,
		vault:     v,
		allocator: alloc,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// SetLogger overrides the logger. Passing nil restores slog.Default().
func (n *Node) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
}

// SetTracer overrides the tracer. Passing nil restores the global provider's
// tracer.
func (n *Node) SetTracer(tracer trace.Tracer) {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	n.tracer = tracer
}

// SetMetrics enables prometheus instrumentation.
func (n *Node) SetMetrics(m *observability.VaultMetrics) { n.metrics = m }

// SetStore attaches a database. Every committed operation persists a full
// snapshot to it.
func (n *Node) SetStore(db storage.Database) { n.db = db }

func (n *Node) Asset() *token.Ledger          { return n.asset }
func (n *Node) Venue() *portal.Engine         { return n.venue }
func (n *Node) Vault() *vault.Engine          { return n.vault }
func (n *Node) Allocator() *allocator.Engine  { return n.allocator }
func (n *Node) Pauses() *nativecommon.Pauses  { return n.pauses }

// View runs fn while holding the node lock so reads observe a committed
// state.
func (n *Node) View(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn()
}

// Apply runs fn as a single atomic operation. On error or panic every
// journaled mutation made by fn is reverted and its events are discarded.
func (n *Node) Apply(op string, fn func() error) (*Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, span := n.tracer.Start(context.Background(), "core.apply", trace.WithAttributes(
		attribute.String("acre.operation", op),
	))
	defer span.End()

	start := time.Now()
	snap := n.journal.Snapshot()
	if err := run(fn); err != nil {
		n.journal.RevertToSnapshot(snap)
		reason := errorReason(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		n.metrics.Observe(op, time.Since(start), reason)
		n.logger.Warn("operation reverted",
			slog.String("operation", op),
			slog.String("reason", reason),
			slog.Any("error", err))
		return nil, err
	}

	receipt := &Receipt{ID: uuid.NewString(), Operation: op, Events: n.buffer.Drain()}
	n.journal.Reset()
	n.metrics.Observe(op, time.Since(start), "")
	n.recordLocked(receipt)
	span.SetAttributes(
		attribute.String("acre.receipt", receipt.ID),
		attribute.Int("acre.events", len(receipt.Events)),
	)
	n.logger.Info("operation committed",
		slog.String("operation", op),
		slog.String("receipt", receipt.ID),
		slog.Int("events", len(receipt.Events)))

	if n.db != nil {
		if err := SaveSnapshot(n.db, n.snapshotLocked()); err != nil {
			n.logger.Error("persist snapshot failed", slog.String("receipt", receipt.ID), slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist")
			return receipt, fmt.Errorf("core: persist snapshot: %w", err)
		}
	}
	return receipt, nil
}

func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}

func (n *Node) recordLocked(receipt *Receipt) {
	if n.metrics == nil {
		return
	}
	for _, evt := range receipt.Events {
		observability.Events().RecordEvent(evt.Type)
		if evt.Type != events.TypeFeeApplied {
			continue
		}
		if fee, err := uint256.FromDecimal(evt.Attributes["fee"]); err == nil {
			n.metrics.RecordFee(evt.Attributes["direction"], fee)
		}
	}
	n.metrics.RecordState(observability.VaultState{
		TotalAssets:    n.vault.TotalAssets(),
		TotalShares:    n.vault.TotalShares(),
		IdleAssets:     n.vault.IdleAssets(),
		DepositBalance: n.allocator.DepositBalance(),
		Paused:         n.vault.Paused(),
	})
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrPanic):
		return "panic"
	case errors.Is(err, nativecommon.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, nativecommon.ErrReentrantCall):
		return "reentrant"
	case errors.Is(err, nativecommon.ErrModulePaused):
		return "paused"
	case errors.Is(err, vault.ErrExceededMax):
		return "exceeded_max"
	case errors.Is(err, vault.ErrInsufficientDeposit), errors.Is(err, allocator.ErrInsufficientDeposit):
		return "insufficient_deposit"
	case errors.Is(err, vault.ErrLiquidityShortfall):
		return "liquidity_shortfall"
	case errors.Is(err, token.ErrInsufficientBalance), errors.Is(err, token.ErrInsufficientAllow):
		return "insufficient_funds"
	default:
		return "other"
	}
}

// Deposit applies vault.Deposit atomically.
func (n *Node) Deposit(caller crypto.Address, assets *uint256.Int, receiver crypto.Address) (*uint256.Int, *Receipt, error) {
	var shares *uint256.Int
	receipt, err := n.Apply("deposit", func() (err error) {
		shares, err = n.vault.Deposit(caller, assets, receiver)
		return err
	})
	return shares, receipt, err
}

// Mint applies vault.Mint atomically.
func (n *Node) Mint(caller crypto.Address, shares *uint256.Int, receiver crypto.Address) (*uint256.Int, *Receipt, error) {
	var assets *uint256.Int
	receipt, err := n.Apply("mint", func() (err error) {
		assets, err = n.vault.Mint(caller, shares, receiver)
		return err
	})
	return assets, receipt, err
}

// Withdraw applies vault.Withdraw atomically.
func (n *Node) Withdraw(caller crypto.Address, assets *uint256.Int, receiver, owner crypto.Address) (*uint256.Int, *Receipt, error) {
	var shares *uint256.Int
	receipt, err := n.Apply("withdraw", func() (err error) {
		shares, err = n.vault.Withdraw(caller, assets, receiver, owner)
		return err
	})
	return shares, receipt, err
}

// Redeem applies vault.Redeem atomically.
func (n *Node) Redeem(caller crypto.Address, shares *uint256.Int, receiver, owner crypto.Address) (*uint256.Int, *Receipt, error) {
	var assets *uint256.Int
	receipt, err := n.Apply("redeem", func() (err error) {
		assets, err = n.vault.Redeem(caller, shares, receiver, owner)
		return err
	})
	return assets, receipt, err
}

// Allocate applies allocator.Allocate atomically.
func (n *Node) Allocate(caller crypto.Address) (*uint256.Int, *Receipt, error) {
	var moved *uint256.Int
	receipt, err := n.Apply("allocate", func() (err error) {
		moved, err = n.allocator.Allocate(caller)
		return err
	})
	return moved, receipt, err
}
