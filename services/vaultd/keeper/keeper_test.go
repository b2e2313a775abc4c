package keeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"acre/core"
	"acre/crypto"
)

type fakeNode struct {
	mu      sync.Mutex
	calls   int
	callers []crypto.Address
	amounts []*uint256.Int
	err     error
}

func (f *fakeNode) Allocate(caller crypto.Address) (*uint256.Int, *core.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.callers = append(f.callers, caller)
	if f.err != nil {
		return nil, nil, f.err
	}
	amount := new(uint256.Int)
	if len(f.amounts) > 0 {
		amount = f.amounts[0]
		f.amounts = f.amounts[1:]
	}
	return amount, &core.Receipt{ID: "r", Operation: "allocate"}, nil
}

func (f *fakeNode) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var maintainer = crypto.BytesToAddress([]byte{0x04})

func TestNewValidates(t *testing.T) {
	_, err := New(nil, maintainer, time.Second, nil)
	require.Error(t, err)
	_, err = New(&fakeNode{}, crypto.ZeroAddress, time.Second, nil)
	require.Error(t, err)
	_, err = New(&fakeNode{}, maintainer, 0, nil)
	require.Error(t, err)
}

func TestTickReportsMovedAmount(t *testing.T) {
	node := &fakeNode{amounts: []*uint256.Int{uint256.NewInt(500)}}
	k, err := New(node, maintainer, time.Second, nil)
	require.NoError(t, err)

	require.Equal(t, uint64(500), k.Tick().Uint64())
	require.True(t, k.Tick().IsZero())
	require.Equal(t, []crypto.Address{maintainer, maintainer}, node.callers)
}

func TestTickSwallowsErrors(t *testing.T) {
	node := &fakeNode{err: errors.New("unauthorized")}
	k, err := New(node, maintainer, time.Second, nil)
	require.NoError(t, err)
	require.True(t, k.Tick().IsZero())
}

func TestRunStopsOnCancel(t *testing.T) {
	node := &fakeNode{}
	k, err := New(node, maintainer, 5*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return node.callCount() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("keeper did not stop after cancel")
	}
}
