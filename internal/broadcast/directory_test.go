package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const fallback = Recipient("+639171234567")

func TestDirectory_SeededWithFallback(t *testing.T) {
	d := NewDirectory(10, fallback)
	snap := d.Snapshot()
	assert.Equal(t, []Recipient{fallback}, snap.Recipients)
}

func TestDirectory_ReplaceWholesale(t *testing.T) {
	d := NewDirectory(10, fallback)
	d.Replace([]Recipient{"+111", "+222"})

	snap := d.Snapshot()
	assert.Equal(t, []Recipient{"+111", "+222"}, snap.Recipients)

	// A later replace fully supersedes, never merges.
	d.Replace([]Recipient{"+333"})
	assert.Equal(t, []Recipient{"+333"}, d.Snapshot().Recipients)
}

func TestDirectory_EmptyReplaceSubstitutesFallback(t *testing.T) {
	d := NewDirectory(10, fallback)
	d.Replace([]Recipient{"+111"})
	d.Replace(nil)
	assert.Equal(t, []Recipient{fallback}, d.Snapshot().Recipients)
}

func TestDirectory_CapacityBound(t *testing.T) {
	d := NewDirectory(2, fallback)
	d.Replace([]Recipient{"+111", "+222", "+333", "+444"})
	assert.Equal(t, []Recipient{"+111", "+222"}, d.Snapshot().Recipients)
}

func TestDirectory_VersionAdvances(t *testing.T) {
	d := NewDirectory(10, fallback)
	v1 := d.Snapshot().Version
	d.Replace([]Recipient{"+111"})
	v2 := d.Snapshot().Version
	assert.Greater(t, v2, v1)
}

func TestDirectory_SnapshotIsolation(t *testing.T) {
	d := NewDirectory(10, fallback)
	d.Replace([]Recipient{"+111", "+222"})
	snap := d.Snapshot()

	// A refresh mid-broadcast must not disturb a snapshot already taken.
	d.Replace([]Recipient{"+999"})
	assert.Equal(t, []Recipient{"+111", "+222"}, snap.Recipients)
}
