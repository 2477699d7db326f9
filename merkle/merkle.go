// Package merkle verifies single-leaf inclusion proofs addressed by
// generalized index.
package merkle

import (
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidIndex is returned for generalized index 0, which addresses no node.
	ErrInvalidIndex = errors.New("invalid generalized index")
	// ErrBranchLength is returned when the branch does not have one sibling per tree level.
	ErrBranchLength = errors.New("branch length does not match generalized index depth")
	// ErrRootMismatch is returned when the folded branch does not produce the expected root.
	ErrRootMismatch = errors.New("merkle branch does not match root")
)

// FloorLog2 returns floor(log2(x)), and 0 for x == 0.
func FloorLog2(x uint64) int {
	if x == 0 {
		return 0
	}
	return bits.Len64(x) - 1
}

// SubtreeIndex strips the leading 1 bit from a generalized index, leaving the
// position of the node among the nodes of its depth.
func SubtreeIndex(gindex uint64) uint64 {
	return gindex % (uint64(1) << uint(FloorLog2(gindex)))
}

// HashPair returns sha256(left || right).
func HashPair(left, right common.Hash) common.Hash {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return sha256.Sum256(buf[:])
}

// ComputeRoot folds the branch onto leaf from the bottom level upwards. Bit i
// of the subtree index tells whether the accumulated node is the right (1) or
// left (0) child at level i.
func ComputeRoot(leaf common.Hash, branch []common.Hash, gindex uint64) (common.Hash, error) {
	if gindex == 0 {
		return common.Hash{}, ErrInvalidIndex
	}
	depth := FloorLog2(gindex)
	if len(branch) != depth {
		return common.Hash{}, errors.Wrapf(ErrBranchLength, "gindex %d wants %d siblings, have %d", gindex, depth, len(branch))
	}
	index := SubtreeIndex(gindex)
	value := leaf
	for i := 0; i < depth; i++ {
		if (index>>uint(i))&1 == 1 {
			value = HashPair(branch[i], value)
		} else {
			value = HashPair(value, branch[i])
		}
	}
	return value, nil
}

// VerifyBranch implements is_valid_merkle_branch with the depth and index
// taken from the generalized index.
func VerifyBranch(leaf common.Hash, branch []common.Hash, gindex uint64, root common.Hash) error {
	computed, err := ComputeRoot(leaf, branch, gindex)
	if err != nil {
		return err
	}
	if computed != root {
		return errors.Wrapf(ErrRootMismatch, "have %#x, want %#x", computed, root)
	}
	return nil
}

// IsValidBranch reports whether branch proves leaf at gindex under root.
func IsValidBranch(leaf common.Hash, branch []common.Hash, gindex uint64, root common.Hash) bool {
	return VerifyBranch(leaf, branch, gindex, root) == nil
}

// IsZeroBranch reports whether every node of the branch is the zero hash,
// which is how absent proofs are encoded.
func IsZeroBranch(branch []common.Hash) bool {
	for _, node := range branch {
		if node != (common.Hash{}) {
			return false
		}
	}
	return true
}
