package kms

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/ruteri/barnyard/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomMasterKey(t *testing.T) interfaces.MasterKey {
	t.Helper()
	var key interfaces.MasterKey
	_, err := rand.Read(key[:])
	require.NoError(t, err, "Failed to generate test master key")
	return key
}

func sharesByX(shares []interfaces.Share) map[byte]interfaces.Share {
	m := make(map[byte]interfaces.Share, len(shares))
	for _, s := range shares {
		m[s.X] = s
	}
	return m
}

func TestNewSplitter(t *testing.T) {
	s, err := NewSplitter(3, 5)
	require.NoError(t, err, "NewSplitter should succeed with valid parameters")
	assert.Equal(t, 3, s.Threshold())
	assert.Equal(t, 5, s.TotalShares())

	_, err = NewSplitter(6, 5)
	assert.Error(t, err, "Should fail when threshold > total shares")

	_, err = NewSplitter(1, 5)
	assert.Error(t, err, "Should fail when threshold < 2")

	_, err = NewSplitter(3, 256)
	assert.Error(t, err, "Should fail when total shares > 255")

	d := DefaultSplitter()
	assert.Equal(t, DefaultThreshold, d.Threshold())
	assert.Equal(t, DefaultTotalShares, d.TotalShares())
}

func TestSplitter_SplitShape(t *testing.T) {
	key := randomMasterKey(t)
	s := DefaultSplitter()

	shares, err := s.SplitMasterKey(key)
	require.NoError(t, err)
	require.Len(t, shares, 5, "Should generate 5 shares")

	seen := make(map[byte]bool)
	for _, share := range shares {
		assert.NotZero(t, share.X, "x-coordinate must be non-zero")
		assert.False(t, seen[share.X], "x-coordinates must be distinct")
		seen[share.X] = true
		assert.Len(t, share.Y, interfaces.MasterKeySize, "y-vector must be as long as the secret")
		assert.Len(t, share.Bytes(), interfaces.MasterKeySize+1, "encoded share is x || y")
	}

	_, err = s.Split(nil)
	assert.Error(t, err, "Should refuse to split an empty secret")
}

func TestSplitter_ReconstructFromDifferentSubsets(t *testing.T) {
	key := randomMasterKey(t)
	s := DefaultSplitter()

	shares, err := s.SplitMasterKey(key)
	require.NoError(t, err)

	// x-coordinates are random; pick by position in the output
	first, err := s.ReconstructMasterKey([]interfaces.Share{shares[0], shares[2], shares[4]})
	require.NoError(t, err)
	second, err := s.ReconstructMasterKey([]interfaces.Share{shares[1], shares[3], shares[4]})
	require.NoError(t, err)

	assert.Equal(t, key, first, "Reconstructed key should match the original")
	assert.Equal(t, first, second, "Any threshold subset should yield the same key")
}

func TestSplitter_AllSubsets(t *testing.T) {
	secret := []byte("barnyard secret of arbitrary length")
	s := DefaultSplitter()

	shares, err := s.Split(secret)
	require.NoError(t, err)

	for mask := 1; mask < 1<<len(shares); mask++ {
		var subset []interfaces.Share
		for i := range shares {
			if mask&(1<<i) != 0 {
				subset = append(subset, shares[i])
			}
		}

		got, err := s.Reconstruct(subset)
		if len(subset) >= s.Threshold() {
			require.NoError(t, err, "subset %05b should reconstruct", mask)
			assert.Equal(t, secret, got, "subset %05b reconstructed the wrong secret", mask)
		} else {
			require.ErrorIs(t, err, interfaces.ErrReconstruction, "subset %05b is below threshold", mask)
			assert.Nil(t, got)
		}
	}
}

func TestSplitter_EncodedShareRoundTrip(t *testing.T) {
	key := randomMasterKey(t)
	s := DefaultSplitter()

	shares, err := s.SplitMasterKey(key)
	require.NoError(t, err)

	decoded := make([]interfaces.Share, 0, 3)
	for _, share := range shares[:3] {
		parsed, err := interfaces.ParseShareFor(share.Bytes(), interfaces.MasterKeySize)
		require.NoError(t, err)
		decoded = append(decoded, parsed)
	}

	got, err := s.ReconstructMasterKey(decoded)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestSplitter_ReconstructRejectsMalformedShares(t *testing.T) {
	key := randomMasterKey(t)
	s := DefaultSplitter()

	shares, err := s.SplitMasterKey(key)
	require.NoError(t, err)

	truncated := interfaces.Share{X: shares[2].X, Y: shares[2].Y[:16]}
	zeroX := interfaces.Share{X: 0, Y: bytes.Clone(shares[2].Y)}
	empty := interfaces.Share{X: shares[2].X}

	tests := []struct {
		name   string
		shares []interfaces.Share
	}{
		{"no shares", nil},
		{"below threshold", shares[:2]},
		{"duplicate x-coordinate", []interfaces.Share{shares[0], shares[1], shares[0]}},
		{"length mismatch", []interfaces.Share{shares[0], shares[1], truncated}},
		{"zero x-coordinate", []interfaces.Share{shares[0], shares[1], zeroX}},
		{"empty y-vector", []interfaces.Share{empty, shares[0], shares[1]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Reconstruct(tt.shares)
			require.ErrorIs(t, err, interfaces.ErrReconstruction)
			assert.Nil(t, got)
		})
	}
}

func TestSplitter_ReconstructMasterKeyLength(t *testing.T) {
	s := DefaultSplitter()

	shares, err := s.Split([]byte("short"))
	require.NoError(t, err)

	_, err = s.ReconstructMasterKey(shares[:3])
	assert.ErrorIs(t, err, interfaces.ErrReconstruction, "A non-32-byte result is not a master key")
}

func TestSplitter_DoesNotAliasInput(t *testing.T) {
	secret := []byte("0123456789abcdef")
	s := DefaultSplitter()

	shares, err := s.Split(secret)
	require.NoError(t, err)

	input := []interfaces.Share{shares[0], shares[1], shares[2]}
	before := make([][]byte, len(input))
	for i, share := range input {
		before[i] = bytes.Clone(share.Y)
	}

	_, err = s.Reconstruct(input)
	require.NoError(t, err)
	for i, share := range input {
		assert.Equal(t, before[i], share.Y, "Reconstruct must not modify caller shares")
	}
}

func TestUnsealer_SubmitShares(t *testing.T) {
	key := randomMasterKey(t)
	s := DefaultSplitter()

	shares, err := s.SplitMasterKey(key)
	require.NoError(t, err)

	u := NewUnsealer(s)
	assert.False(t, u.IsUnlocked(), "Unsealer should start locked")

	_, err = u.MasterKey()
	assert.ErrorIs(t, err, ErrLocked)

	unlocked, err := u.SubmitShare(shares[0])
	require.NoError(t, err)
	assert.False(t, unlocked)

	_, err = u.SubmitShare(shares[0])
	assert.ErrorIs(t, err, interfaces.ErrReconstruction, "Duplicate share should be rejected")
	assert.Equal(t, 1, u.SharesReceived())

	unlocked, err = u.SubmitShare(shares[3])
	require.NoError(t, err)
	assert.False(t, unlocked)

	unlocked, err = u.SubmitShare(shares[4])
	require.NoError(t, err)
	assert.True(t, unlocked, "Third share should unlock")
	assert.True(t, u.IsUnlocked())
	assert.Zero(t, u.SharesReceived(), "Shares should be cleared after reconstruction")

	got, err := u.MasterKey()
	require.NoError(t, err)
	assert.Equal(t, key, got)

	unlocked, err = u.SubmitShare(shares[1])
	assert.Error(t, err, "Submitting to an unlocked unsealer should fail")
	assert.True(t, unlocked)

	u.Reset()
	assert.False(t, u.IsUnlocked())
	_, err = u.MasterKey()
	assert.ErrorIs(t, err, ErrLocked)
}

func TestUnsealer_FailedAttemptClearsShares(t *testing.T) {
	s := DefaultSplitter()

	keyShares, err := s.SplitMasterKey(randomMasterKey(t))
	require.NoError(t, err)
	shortShares, err := s.Split([]byte("not a key"))
	require.NoError(t, err)

	byX := sharesByX(shortShares)
	u := NewUnsealer(s)

	_, err = u.SubmitShare(keyShares[0])
	require.NoError(t, err)
	_, err = u.SubmitShare(keyShares[1])
	require.NoError(t, err)

	// a share of a different length makes the attempt fail
	var other interfaces.Share
	for x, share := range byX {
		if x != keyShares[0].X && x != keyShares[1].X {
			other = share
			break
		}
	}
	require.NotZero(t, other.X, "need a share with a fresh x-coordinate")

	unlocked, err := u.SubmitShare(other)
	assert.ErrorIs(t, err, interfaces.ErrReconstruction)
	assert.False(t, unlocked)
	assert.False(t, u.IsUnlocked())
	assert.Zero(t, u.SharesReceived(), "Shares should be cleared after a failed attempt")
}

func TestUnsealer_RejectsMalformedShare(t *testing.T) {
	u := NewUnsealer(DefaultSplitter())

	_, err := u.SubmitShare(interfaces.Share{X: 0, Y: []byte{1}})
	assert.ErrorIs(t, err, interfaces.ErrReconstruction)

	_, err = u.SubmitShare(interfaces.Share{X: 1})
	assert.ErrorIs(t, err, interfaces.ErrReconstruction)
	assert.Zero(t, u.SharesReceived())
}
