package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCheckRejectsPastAndNow(t *testing.T) {
	p := NewPolicy(0)
	assert.ErrorIs(t, p.Check(now, now, nil), ErrInPast)
	assert.ErrorIs(t, p.Check(now.Add(-time.Minute), now, nil), ErrInPast)
	assert.NoError(t, p.Check(now.Add(time.Second), now, nil))
}

func TestPastWinsOverConflict(t *testing.T) {
	p := NewPolicy(5 * time.Hour)
	past := now.Add(-time.Hour)
	assert.ErrorIs(t, p.Check(past, now, []time.Time{past}), ErrInPast)
}

func TestCheckBufferBoundary(t *testing.T) {
	p := NewPolicy(5 * time.Hour)
	existing := []time.Time{now.Add(24 * time.Hour)}

	err := p.Check(existing[0].Add(5*time.Hour-time.Minute), now, existing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, existing[0], ce.Existing)

	err = p.Check(existing[0].Add(-(5*time.Hour - time.Minute)), now, existing)
	assert.ErrorIs(t, err, ErrConflict)

	assert.NoError(t, p.Check(existing[0].Add(5*time.Hour), now, existing))
	assert.NoError(t, p.Check(existing[0].Add(-5*time.Hour), now, existing))
}

func TestCheckAgainstEveryShowtime(t *testing.T) {
	p := NewPolicy(3 * time.Hour)
	base := now.Add(48 * time.Hour)
	existing := []time.Time{base, base.Add(6 * time.Hour), base.Add(12 * time.Hour)}

	assert.NoError(t, p.Check(base.Add(3*time.Hour), now, existing))
	assert.ErrorIs(t, p.Check(base.Add(10*time.Hour), now, existing), ErrConflict)
	assert.NoError(t, p.Check(base.Add(15*time.Hour), now, existing))
}

func TestConflictsIsSymmetric(t *testing.T) {
	p := NewPolicy(DefaultBuffer)
	a, b := now, now.Add(4*time.Hour)
	assert.Equal(t, p.Conflicts(a, b), p.Conflicts(b, a))
	assert.True(t, p.Conflicts(a, b))
	assert.Equal(t, DefaultBuffer, NewPolicy(-1).Buffer)
}
