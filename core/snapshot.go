package core

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"acre/native/allocator"
	"acre/native/portal"
	"acre/native/token"
	"acre/native/vault"
	"acre/storage"
)

// SnapshotVersion is bumped whenever the encoded layout changes.
const SnapshotVersion uint64 = 1

var snapshotKey = []byte("acre/snapshot/latest")

// ErrSnapshotVersion is returned when decoding a snapshot written by an
// incompatible release.
var ErrSnapshotVersion = errors.New("core: unsupported snapshot version")

// Snapshot is the full persisted state of a node.
type Snapshot struct {
	Version   uint64
	Asset     token.Export
	Vault     vault.Snapshot
	Allocator allocator.Snapshot
	Venue     []portal.Position
}

// EncodeSnapshot serialises a snapshot using RLP.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("core: nil snapshot")
	}
	return rlp.EncodeToBytes(s)
}

// DecodeSnapshot parses an RLP encoded snapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	s := new(Snapshot)
	if err := rlp.DecodeBytes(data, s); err != nil {
		return nil, fmt.Errorf("core: decode snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}
	return s, nil
}

// SaveSnapshot writes s to db under the latest-snapshot key.
func SaveSnapshot(db storage.Database, s *Snapshot) error {
	encoded, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}
	return db.Put(snapshotKey, encoded)
}

// LoadSnapshot reads the latest snapshot. storage.ErrNotFound is returned
// when nothing has been persisted yet.
func LoadSnapshot(db storage.Database) (*Snapshot, error) {
	data, err := db.Get(snapshotKey)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(data)
}

// Snapshot captures the committed state of every component.
func (n *Node) Snapshot() *Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshotLocked()
}

func (n *Node) snapshotLocked() *Snapshot {
	return &Snapshot{
		Version:   SnapshotVersion,
		Asset:     n.asset.Export(),
		Vault:     n.vault.Export(),
		Allocator: n.allocator.Export(),
		Venue:     n.venue.Export(),
	}
}

// Restore replaces the node state with s. The vault's dispatcher must be
// this node's allocator or unset. Every component is validated before any of
// them is overwritten.
func (n *Node) Restore(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("core: nil snapshot")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := s.validate(n.allocator); err != nil {
		return err
	}
	if err := n.asset.Import(s.Asset); err != nil {
		return fmt.Errorf("core: restore asset: %w", err)
	}
	n.venue.Import(s.Venue)
	if err := n.allocator.Import(s.Allocator); err != nil {
		return fmt.Errorf("core: restore allocator: %w", err)
	}
	if err := n.vault.Import(s.Vault, n.allocator); err != nil {
		return fmt.Errorf("core: restore vault: %w", err)
	}
	n.buffer.Drain()
	n.journal.Reset()
	return nil
}

func (s *Snapshot) validate(dispatcher vault.Dispatcher) error {
	if err := s.Asset.Validate(); err != nil {
		return fmt.Errorf("core: restore asset: %w", err)
	}
	if err := s.Allocator.Validate(); err != nil {
		return fmt.Errorf("core: restore allocator: %w", err)
	}
	if err := s.Vault.Validate(dispatcher); err != nil {
		return fmt.Errorf("core: restore vault: %w", err)
	}
	return nil
}

// LoadNode builds a node from cfg and restores the latest snapshot in db
// when one exists. It never writes to db and leaves it detached, which makes
// it suitable for read-only inspection.
func LoadNode(cfg Config, db storage.Database) (*Node, error) {
	node, _, err := loadNode(cfg, db)
	return node, err
}

// OpenNode builds a node from cfg, restores the latest snapshot in db when
// one exists and attaches db for subsequent commits. Genesis balances are
// only used, and persisted, when db is empty.
func OpenNode(cfg Config, db storage.Database) (*Node, error) {
	node, restored, err := loadNode(cfg, db)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return node, nil
	}
	if !restored {
		if err := SaveSnapshot(db, node.Snapshot()); err != nil {
			return nil, fmt.Errorf("core: persist genesis: %w", err)
		}
	}
	node.SetStore(db)
	return node, nil
}

func loadNode(cfg Config, db storage.Database) (*Node, bool, error) {
	node, err := NewNode(cfg)
	if err != nil {
		return nil, false, err
	}
	if db == nil {
		return node, false, nil
	}
	snap, err := LoadSnapshot(db)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return node, false, nil
	case err != nil:
		return nil, false, err
	}
	if err := node.Restore(snap); err != nil {
		return nil, false, err
	}
	return node, true, nil
}
