package merkle

import "github.com/ethereum/go-ethereum/common"

// SparseTree is a fixed-depth binary tree addressed by generalized index in
// which unset nodes are zero hashes. It is used to produce branches for
// synthetic states.
type SparseTree struct {
	depth int
	nodes map[uint64]common.Hash
}

// NewSparseTree creates a tree whose leaves live at the given depth.
func NewSparseTree(depth int) *SparseTree {
	return &SparseTree{depth: depth, nodes: make(map[uint64]common.Hash)}
}

// Set pins the node at gindex. Nodes below a pinned node are ignored.
func (t *SparseTree) Set(gindex uint64, value common.Hash) {
	t.nodes[gindex] = value
}

// Node returns the hash of the node at gindex.
func (t *SparseTree) Node(gindex uint64) common.Hash {
	if value, ok := t.nodes[gindex]; ok {
		return value
	}
	if FloorLog2(gindex) >= t.depth {
		return common.Hash{}
	}
	return HashPair(t.Node(2*gindex), t.Node(2*gindex+1))
}

// Root returns the tree root.
func (t *SparseTree) Root() common.Hash {
	return t.Node(1)
}

// Branch returns the siblings of gindex from the bottom level upwards.
func (t *SparseTree) Branch(gindex uint64) []common.Hash {
	branch := make([]common.Hash, 0, FloorLog2(gindex))
	for g := gindex; g > 1; g /= 2 {
		branch = append(branch, t.Node(g^1))
	}
	return branch
}
