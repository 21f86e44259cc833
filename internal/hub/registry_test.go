package hub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReserveActivateRemove(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Reserve("alice"))
	assert.ErrorIs(t, r.Reserve("alice"), ErrNameTaken)

	// reserved but not yet active: not a relay target
	assert.Empty(t, r.Active())
	assert.Empty(t, r.ActiveNames())

	r.Activate(&Participant{Name: "alice"})
	assert.Equal(t, []string{"alice"}, r.ActiveNames())

	_, removed := r.Remove("alice")
	assert.True(t, removed)
	_, removed = r.Remove("alice")
	assert.False(t, removed, "second removal must report nothing to do")

	// name is free again after removal
	assert.NoError(t, r.Reserve("alice"))
}

func TestRegistryRemoveReservedEntry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Reserve("bob"))

	p, removed := r.Remove("bob")
	assert.True(t, removed)
	assert.Nil(t, p, "a reserved entry has no participant yet")
}

func TestRegistryConcurrentReserveAdmitsExactlyOne(t *testing.T) {
	r := NewRegistry()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Reserve("carol")
		}()
	}
	wg.Wait()
	close(errs)

	var won int
	for err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrNameTaken)
		}
	}
	assert.Equal(t, 1, won)
}

func TestRegistryActiveIsPointInTimeCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Reserve("alice"))
	r.Activate(&Participant{Name: "alice"})

	active := r.Active()
	_, _ = r.Remove("alice")
	assert.Len(t, active, 1, "snapshot taken before removal stays intact")
}
