// Package kms splits and reconstructs the barnyard master key with Shamir's
// Secret Sharing.
//
// The master key is split into N shares, any T of which reconstruct it
// exactly; T-1 or fewer shares reveal nothing about the key. Each byte of the
// secret is shared with its own random polynomial of degree T-1 over GF(2^8),
// evaluated at N distinct non-zero points. The field arithmetic comes from
// github.com/hashicorp/vault/shamir.
//
// # Splitter
//
// A Splitter is configured once per deployment with a threshold and a total
// share count (default 3 of 5):
//
//	splitter, err := kms.NewSplitter(kms.DefaultThreshold, kms.DefaultTotalShares)
//	shares, err := splitter.Split(masterKey[:])
//	secret, err := splitter.Reconstruct(shares[:3])
//
// Reconstruct refuses to interpolate rather than return a wrong secret: fewer
// than T shares, colliding x-coordinates, zero x-coordinates and mismatched
// y lengths all fail with interfaces.ErrReconstruction.
//
// # Share Encoding
//
//	[x (1 byte)][y (one byte per secret byte)]
//
// There is no length field. Decoders either know the secret length
// (interfaces.ParseShareFor) or reject anything shorter than two bytes.
//
// # Unsealer
//
// An Unsealer collects shares one at a time, as custodians hand them in
// locally, and reconstructs the master key once the threshold is reached.
// Collected shares are wiped from memory after every reconstruction attempt.
package kms
