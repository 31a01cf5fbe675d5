// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"errors"
	"slices"
	"testing"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"go.uber.org/mock/gomock"
	"pgregory.net/rand"
)

func TestAccountStore_UnseenAccountIsEmptyAndNotAlive(t *testing.T) {
	store := NewAccountStore(nil)
	account := store.Get(kakarot.Address{1})
	if !account.Equal(Account{}) {
		t.Errorf("unexpected account, got %v", account)
	}
	if account.IsAlive() {
		t.Errorf("unseen account must not be alive")
	}
	if store.AccountExists(kakarot.Address{1}) {
		t.Errorf("unseen account must not exist")
	}
}

func TestAccount_IsAlive(t *testing.T) {
	tests := map[string]struct {
		account Account
		alive   bool
	}{
		"empty":   {Account{}, false},
		"nonce":   {Account{Nonce: 1}, true},
		"balance": {Account{Balance: kakarot.NewValue(1)}, true},
		"code":    {Account{Code: kakarot.Code{0x00}}, true},
		"no code": {Account{Code: kakarot.Code{}}, false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if want, got := test.alive, test.account.IsAlive(); want != got {
				t.Errorf("unexpected liveness, wanted %t, got %t", want, got)
			}
		})
	}
}

func TestAccountStore_ReadsFallThroughToBackingState(t *testing.T) {
	ctrl := gomock.NewController(t)
	backing := kakarot.NewMockWorldState(ctrl)
	address := kakarot.Address{1}

	backing.EXPECT().GetNonce(address).Return(uint64(4))
	backing.EXPECT().GetBalance(address).Return(kakarot.NewValue(10))
	backing.EXPECT().GetCode(address).Return(kakarot.Code{1, 2})
	backing.EXPECT().GetStorage(address, kakarot.Key{2}).Return(kakarot.Word{3})

	store := NewAccountStore(backing)
	want := Account{Nonce: 4, Balance: kakarot.NewValue(10), Code: kakarot.Code{1, 2}}
	if got := store.Get(address); !want.Equal(got) {
		t.Errorf("unexpected account, wanted %v, got %v", want, got)
	}
	if want, got := (kakarot.Word{3}), store.GetStorage(address, kakarot.Key{2}); want != got {
		t.Errorf("unexpected storage value, wanted %v, got %v", want, got)
	}
}

func TestAccountStore_WritesDoNotReachBackingStateBeforeFlush(t *testing.T) {
	backing := InMemory{}
	store := NewAccountStore(backing)
	store.SetNonce(kakarot.Address{1}, 5)
	store.SetStorage(kakarot.Address{1}, kakarot.Key{1}, kakarot.Word{1})
	if len(backing) != 0 {
		t.Fatalf("backing state was modified: %v", backing)
	}

	store.Flush(backing)
	want := InMemory{kakarot.Address{1}: {Nonce: 5, Storage: Storage{kakarot.Key{1}: kakarot.Word{1}}}}
	if !want.Equal(backing) {
		t.Errorf("unexpected flushed state: %v", backing.Diff(want))
	}
}

func TestAccountStore_RevertRestoresEveryTouchedEntry(t *testing.T) {
	backing := InMemory{
		kakarot.Address{1}: {Nonce: 1, Balance: kakarot.NewValue(100), Storage: Storage{kakarot.Key{1}: kakarot.Word{1}}},
	}
	store := NewAccountStore(backing)
	store.SetBalance(kakarot.Address{1}, kakarot.NewValue(50))

	handle := store.Snapshot()
	store.SetBalance(kakarot.Address{1}, kakarot.NewValue(10))
	store.SetNonce(kakarot.Address{2}, 7)
	store.SetStorage(kakarot.Address{1}, kakarot.Key{1}, kakarot.Word{2})
	store.SetTransientStorage(kakarot.Address{1}, kakarot.Key{1}, kakarot.Word{9})
	if err := store.Revert(handle); err != nil {
		t.Fatalf("failed to revert: %v", err)
	}

	if want, got := kakarot.NewValue(50), store.GetBalance(kakarot.Address{1}); want != got {
		t.Errorf("unexpected balance, wanted %v, got %v", want, got)
	}
	if store.AccountExists(kakarot.Address{2}) {
		t.Errorf("account created in reverted scope still exists")
	}
	if want, got := (kakarot.Word{1}), store.GetStorage(kakarot.Address{1}, kakarot.Key{1}); want != got {
		t.Errorf("unexpected storage, wanted %v, got %v", want, got)
	}
	if want, got := (kakarot.Word{}), store.GetTransientStorage(kakarot.Address{1}, kakarot.Key{1}); want != got {
		t.Errorf("unexpected transient storage, wanted %v, got %v", want, got)
	}
	if want, got := []kakarot.Address{{1}}, store.Touched(); !slices.Equal(want, got) {
		t.Errorf("unexpected touched accounts, wanted %v, got %v", want, got)
	}
}

func TestAccountStore_CommitMergesOnlyTouchedEntries(t *testing.T) {
	backing := InMemory{
		kakarot.Address{1}: {Balance: kakarot.NewValue(1)},
		kakarot.Address{2}: {Balance: kakarot.NewValue(2)},
	}
	store := NewAccountStore(backing)

	outer := store.Snapshot()
	inner := store.Snapshot()
	store.SetBalance(kakarot.Address{2}, kakarot.NewValue(20))
	if err := store.Commit(inner); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	if want, got := []kakarot.Address{{2}}, store.Touched(); !slices.Equal(want, got) {
		t.Errorf("unexpected touched accounts, wanted %v, got %v", want, got)
	}
	if want, got := kakarot.NewValue(1), store.GetBalance(kakarot.Address{1}); want != got {
		t.Errorf("untouched account changed, wanted %v, got %v", want, got)
	}
	if want, got := kakarot.NewValue(20), store.GetBalance(kakarot.Address{2}); want != got {
		t.Errorf("committed change lost, wanted %v, got %v", want, got)
	}

	// The committed child is still part of the parent scope.
	if err := store.Revert(outer); err != nil {
		t.Fatalf("failed to revert: %v", err)
	}
	if want, got := kakarot.NewValue(2), store.GetBalance(kakarot.Address{2}); want != got {
		t.Errorf("parent revert did not undo child changes, wanted %v, got %v", want, got)
	}
}

func TestAccountStore_ResolvingUnknownHandleFails(t *testing.T) {
	store := NewAccountStore(nil)
	handle := store.Snapshot()
	if err := store.Commit(handle); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	if err := store.Revert(handle); !errors.Is(err, ErrUnknownSnapshot) {
		t.Errorf("expected ErrUnknownSnapshot, got %v", err)
	}
	if err := store.Commit(Handle(-1)); !errors.Is(err, ErrUnknownSnapshot) {
		t.Errorf("expected ErrUnknownSnapshot, got %v", err)
	}
}

func TestAccountStore_SetStorageReportsStatusRelativeToTransactionStart(t *testing.T) {
	backing := InMemory{kakarot.Address{1}: {Storage: Storage{kakarot.Key{1}: kakarot.Word{1}}}}
	store := NewAccountStore(backing)

	if want, got := kakarot.StorageModified, store.SetStorage(kakarot.Address{1}, kakarot.Key{1}, kakarot.Word{2}); want != got {
		t.Errorf("unexpected status, wanted %v, got %v", want, got)
	}
	if want, got := kakarot.StorageModifiedRestored, store.SetStorage(kakarot.Address{1}, kakarot.Key{1}, kakarot.Word{1}); want != got {
		t.Errorf("unexpected status, wanted %v, got %v", want, got)
	}
	if want, got := (kakarot.Word{1}), store.GetCommittedStorage(kakarot.Address{1}, kakarot.Key{1}); want != got {
		t.Errorf("unexpected committed value, wanted %v, got %v", want, got)
	}
}

func TestAccountStore_CopyOfStoreWithAbsentSlotsBehavesIdentically(t *testing.T) {
	store := NewAccountStore(InMemory{kakarot.Address{3}: {Nonce: 3}})
	store.SetNonce(kakarot.Address{1}, 1)
	handle := store.Snapshot()
	store.SetNonce(kakarot.Address{2}, 2)
	store.SetStorage(kakarot.Address{2}, kakarot.Key{1}, kakarot.Word{1})
	if err := store.Revert(handle); err != nil {
		t.Fatalf("failed to revert: %v", err)
	}

	// Address 2 and its slot are now absent entries in the arenas.
	clone := store.Copy()
	for _, address := range []kakarot.Address{{1}, {2}, {3}, {4}} {
		if want, got := store.Get(address), clone.Get(address); !want.Equal(got) {
			t.Errorf("unexpected account %v in copy, wanted %v, got %v", address, want, got)
		}
		if want, got := store.GetStorage(address, kakarot.Key{1}), clone.GetStorage(address, kakarot.Key{1}); want != got {
			t.Errorf("unexpected storage of %v in copy, wanted %v, got %v", address, want, got)
		}
	}
}

func TestAccountStore_CopyDoesNotAliasOriginal(t *testing.T) {
	store := NewAccountStore(nil)
	store.SetCode(kakarot.Address{1}, kakarot.Code{1, 2, 3})
	store.SetStorage(kakarot.Address{1}, kakarot.Key{1}, kakarot.Word{1})

	clone := store.Copy()
	clone.GetCode(kakarot.Address{1})[0] = 0xff
	clone.SetStorage(kakarot.Address{1}, kakarot.Key{1}, kakarot.Word{2})
	clone.SetNonce(kakarot.Address{5}, 1)

	if want, got := (kakarot.Code{1, 2, 3}), store.GetCode(kakarot.Address{1}); !slices.Equal(want, got) {
		t.Errorf("code of original modified through copy, got %v", got)
	}
	if want, got := (kakarot.Word{1}), store.GetStorage(kakarot.Address{1}, kakarot.Key{1}); want != got {
		t.Errorf("storage of original modified through copy, got %v", got)
	}
	if store.AccountExists(kakarot.Address{5}) {
		t.Errorf("account created in copy visible in original")
	}
}

func TestAccountStore_RandomizedRevertRoundTrip(t *testing.T) {
	rnd := rand.New(0)
	addresses := []kakarot.Address{{1}, {2}, {3}, {4}, {5}}
	keys := []kakarot.Key{{1}, {2}, {3}}

	for round := 0; round < 100; round++ {
		store := NewAccountStore(nil)
		mutate := func(n int) {
			for i := 0; i < n; i++ {
				address := addresses[rnd.Intn(len(addresses))]
				switch rnd.Intn(3) {
				case 0:
					store.SetNonce(address, rnd.Uint64())
				case 1:
					store.SetBalance(address, kakarot.NewValue(rnd.Uint64()))
				case 2:
					store.SetStorage(address, keys[rnd.Intn(len(keys))], kakarot.Word{byte(rnd.Intn(256))})
				}
			}
		}
		mutate(rnd.Intn(10))
		before := store.Copy()

		handle := store.Snapshot()
		mutate(1 + rnd.Intn(20))
		if err := store.Revert(handle); err != nil {
			t.Fatalf("failed to revert: %v", err)
		}

		for _, address := range addresses {
			if want, got := before.Get(address), store.Get(address); !want.Equal(got) {
				t.Fatalf("round %d: account %v not restored, wanted %v, got %v", round, address, want, got)
			}
			for _, key := range keys {
				if want, got := before.GetStorage(address, key), store.GetStorage(address, key); want != got {
					t.Fatalf("round %d: slot %v/%v not restored, wanted %v, got %v", round, address, key, want, got)
				}
			}
		}
	}
}

func TestAccountStore_SelfDestructOfCreatedAccountDeletesItOnFlush(t *testing.T) {
	backing := InMemory{}
	store := NewAccountStore(backing)
	created, beneficiary := kakarot.Address{1}, kakarot.Address{2}

	store.MarkCreated(created)
	store.SetBalance(created, kakarot.NewValue(10))
	store.SetStorage(created, kakarot.Key{1}, kakarot.Word{1})
	if !store.SelfDestruct(created, beneficiary) {
		t.Errorf("first self-destruct should report true")
	}
	if store.SelfDestruct(created, beneficiary) {
		t.Errorf("second self-destruct should report false")
	}
	if !store.HasSelfDestructed(created) {
		t.Errorf("account should be marked as self-destructed")
	}

	store.Flush(backing)
	want := InMemory{beneficiary: {Balance: kakarot.NewValue(10)}}
	if !want.Equal(backing) {
		t.Errorf("unexpected flushed state: %v", backing.Diff(want))
	}
}

func TestAccountStore_SelfDestructOfExistingAccountOnlyMovesBalance(t *testing.T) {
	backing := InMemory{kakarot.Address{1}: {Nonce: 1, Balance: kakarot.NewValue(10), Code: kakarot.Code{0}}}
	store := NewAccountStore(backing)
	store.SelfDestruct(kakarot.Address{1}, kakarot.Address{2})
	store.Flush(backing)

	want := InMemory{
		kakarot.Address{1}: {Nonce: 1, Code: kakarot.Code{0}},
		kakarot.Address{2}: {Balance: kakarot.NewValue(10)},
	}
	if !want.Equal(backing) {
		t.Errorf("unexpected flushed state: %v", backing.Diff(want))
	}
}
