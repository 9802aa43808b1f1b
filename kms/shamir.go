package kms

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/barnyard/cryptoutils"
	"github.com/ruteri/barnyard/interfaces"
)

const (
	// DefaultThreshold is the number of shares needed to reconstruct the master key.
	DefaultThreshold = 3
	// DefaultTotalShares is the number of shares produced by a split.
	DefaultTotalShares = 5
	// MaxShares is the largest share count GF(2^8) supports.
	MaxShares = 255
)

// Splitter splits and reconstructs secrets for a fixed (threshold, total) pair.
type Splitter struct {
	threshold int
	total     int
}

// NewSplitter validates the threshold scheme parameters.
func NewSplitter(threshold, total int) (*Splitter, error) {
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if total < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}
	if total > MaxShares {
		return nil, fmt.Errorf("total shares cannot exceed %d", MaxShares)
	}

	return &Splitter{threshold: threshold, total: total}, nil
}

// DefaultSplitter returns a 3-of-5 splitter.
func DefaultSplitter() *Splitter {
	return &Splitter{threshold: DefaultThreshold, total: DefaultTotalShares}
}

// Threshold returns the number of shares needed to reconstruct.
func (s *Splitter) Threshold() int {
	return s.threshold
}

// TotalShares returns the number of shares Split produces.
func (s *Splitter) TotalShares() int {
	return s.total
}

// Split produces TotalShares shares of secret with distinct non-zero
// x-coordinates.
func (s *Splitter) Split(secret []byte) ([]interfaces.Share, error) {
	if len(secret) == 0 {
		return nil, errors.New("cannot split an empty secret")
	}

	parts, err := shamir.Split(secret, s.total, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split secret: %w", err)
	}

	// vault encodes each part as y || x
	shares := make([]interfaces.Share, len(parts))
	for i, part := range parts {
		shares[i] = interfaces.Share{
			X: part[len(part)-1],
			Y: bytes.Clone(part[:len(part)-1]),
		}
		cryptoutils.Wipe(part)
	}
	return shares, nil
}

// Reconstruct recovers the secret from at least Threshold shares.
func (s *Splitter) Reconstruct(shares []interfaces.Share) ([]byte, error) {
	if err := s.validate(shares); err != nil {
		return nil, err
	}

	parts := make([][]byte, len(shares))
	for i, share := range shares {
		part := make([]byte, 0, len(share.Y)+1)
		part = append(part, share.Y...)
		parts[i] = append(part, share.X)
	}
	defer func() {
		for _, part := range parts {
			cryptoutils.Wipe(part)
		}
	}()

	secret, err := shamir.Combine(parts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrReconstruction, err)
	}
	return secret, nil
}

func (s *Splitter) validate(shares []interfaces.Share) error {
	if len(shares) < s.threshold {
		return fmt.Errorf("%w: need at least %d shares, got %d", interfaces.ErrReconstruction, s.threshold, len(shares))
	}

	secretLen := len(shares[0].Y)
	if secretLen == 0 {
		return fmt.Errorf("%w: share has an empty y-vector", interfaces.ErrReconstruction)
	}

	seen := make(map[byte]struct{}, len(shares))
	for _, share := range shares {
		if share.X == 0 {
			return fmt.Errorf("%w: share x-coordinate must be non-zero", interfaces.ErrReconstruction)
		}
		if _, dup := seen[share.X]; dup {
			return fmt.Errorf("%w: duplicate share x-coordinate %d", interfaces.ErrReconstruction, share.X)
		}
		seen[share.X] = struct{}{}

		if len(share.Y) != secretLen {
			return fmt.Errorf("%w: share y-vector lengths differ (%d and %d)", interfaces.ErrReconstruction, secretLen, len(share.Y))
		}
	}
	return nil
}

// SplitMasterKey splits the master key into shares.
func (s *Splitter) SplitMasterKey(key interfaces.MasterKey) ([]interfaces.Share, error) {
	return s.Split(key[:])
}

// ReconstructMasterKey recovers a master key, requiring a 32-byte result.
func (s *Splitter) ReconstructMasterKey(shares []interfaces.Share) (interfaces.MasterKey, error) {
	secret, err := s.Reconstruct(shares)
	if err != nil {
		return interfaces.MasterKey{}, err
	}
	defer cryptoutils.Wipe(secret)

	key, err := interfaces.NewMasterKey(secret)
	if err != nil {
		return interfaces.MasterKey{}, fmt.Errorf("%w: %v", interfaces.ErrReconstruction, err)
	}
	return key, nil
}

var _ interfaces.KeySplitter = (*Splitter)(nil)
