package liquidation

import (
	"errors"
	"testing"
)

func TestBorrowIndexTableGetUninitialized(t *testing.T) {
	table := NewBorrowIndexTable()
	_, err := table.Get("cDAI")
	if !errors.Is(err, ErrUninitializedIndex) {
		t.Fatalf("expected ErrUninitializedIndex, got %v", err)
	}
}

func TestBorrowIndexTableSetGet(t *testing.T) {
	table := NewBorrowIndexTable()
	idx := FromInt64(2)
	table.Set("cDAI", idx)

	got, err := table.Get("cDAI")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Cmp(idx) != 0 {
		t.Fatalf("got %s, want %s", got.String(), idx.String())
	}
}

func TestBorrowIndexTableSnapshotIsIndependent(t *testing.T) {
	table := NewBorrowIndexTable()
	table.Set("cDAI", FromInt64(1))

	snap := table.Snapshot()
	table.Set("cDAI", FromInt64(2))

	if snap["cDAI"].Cmp(FromInt64(1)) != 0 {
		t.Fatalf("snapshot mutated by later Set: %s", snap["cDAI"].String())
	}
}
