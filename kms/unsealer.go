package kms

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ruteri/barnyard/cryptoutils"
	"github.com/ruteri/barnyard/interfaces"
)

// ErrLocked is returned when the master key is requested before enough
// shares have been submitted.
var ErrLocked = errors.New("master key is locked - need more shares to unlock")

// Unsealer accumulates shares until the threshold is reached and then
// reconstructs the master key.
//
// The master key is held only in memory. Shares are kept just long enough to
// attempt reconstruction and are wiped afterwards, whether it succeeded or not.
type Unsealer struct {
	mu             sync.RWMutex
	splitter       *Splitter
	masterKey      interfaces.MasterKey
	isUnlocked     bool
	receivedShares map[byte]interfaces.Share
}

// NewUnsealer creates a locked unsealer for the given scheme.
func NewUnsealer(splitter *Splitter) *Unsealer {
	return &Unsealer{
		splitter:       splitter,
		receivedShares: make(map[byte]interfaces.Share),
	}
}

// SubmitShare adds one share. It returns true once the master key has been
// reconstructed. Submitting the same x-coordinate twice is an error; a failed
// reconstruction resets the collected shares.
func (u *Unsealer) SubmitShare(share interfaces.Share) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.isUnlocked {
		return true, errors.New("master key is already unlocked")
	}

	if share.X == 0 || len(share.Y) == 0 {
		return false, fmt.Errorf("%w: malformed share", interfaces.ErrReconstruction)
	}
	if _, dup := u.receivedShares[share.X]; dup {
		return false, fmt.Errorf("%w: share %d already submitted", interfaces.ErrReconstruction, share.X)
	}
	u.receivedShares[share.X] = interfaces.Share{X: share.X, Y: append([]byte(nil), share.Y...)}

	return u.tryReconstruct()
}

// tryReconstruct attempts to reconstruct the master key from the received shares.
// Not having enough shares yet is not an error.
func (u *Unsealer) tryReconstruct() (bool, error) {
	if len(u.receivedShares) < u.splitter.Threshold() {
		return false, nil
	}

	shares := make([]interfaces.Share, 0, len(u.receivedShares))
	for _, share := range u.receivedShares {
		shares = append(shares, share)
	}
	defer u.clearShares()

	key, err := u.splitter.ReconstructMasterKey(shares)
	if err != nil {
		return false, fmt.Errorf("failed to reconstruct master key: %w", err)
	}

	u.masterKey = key
	u.isUnlocked = true
	return true, nil
}

func (u *Unsealer) clearShares() {
	for x, share := range u.receivedShares {
		cryptoutils.Wipe(share.Y)
		delete(u.receivedShares, x)
	}
}

// SharesReceived returns how many shares are waiting for reconstruction.
func (u *Unsealer) SharesReceived() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.receivedShares)
}

// IsUnlocked returns whether the master key has been reconstructed.
func (u *Unsealer) IsUnlocked() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.isUnlocked
}

// MasterKey returns the reconstructed key, or ErrLocked.
func (u *Unsealer) MasterKey() (interfaces.MasterKey, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if !u.isUnlocked {
		return interfaces.MasterKey{}, ErrLocked
	}
	return u.masterKey, nil
}

// Reset locks the unsealer again and forgets the key and any pending shares.
func (u *Unsealer) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.clearShares()
	u.masterKey = interfaces.MasterKey{}
	u.isUnlocked = false
}
