// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides a generic Merkle tree used to compute the
// transaction root committed to by each block.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree over data of some type T that exhibits the
// behavior defined by the Hashable constraint. Odd levels duplicate their
// last node, matching the spec's leaf-duplication rule.
type Tree[T Hashable[T]] struct {
	Root         *Node[T]
	Leafs        []*Node[T]
	MerkleRoot   []byte
	hashStrategy func() hash.Hash
}

// NewTree constructs a new merkle tree over values. values must be
// non-empty; an empty transaction list is represented by callers hashing
// the empty string directly rather than constructing a tree.
func NewTree[T Hashable[T]](values []T) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate (re)builds the leafs and internal nodes of the tree from values.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return errors.New("cannot construct tree with no content")
	}

	var leafs []*Node[T]
	for _, value := range values {
		h, err := value.Hash()
		if err != nil {
			return err
		}

		leafs = append(leafs, &Node[T]{Hash: h, Value: value, leaf: true, tree: t})
	}

	if len(leafs)%2 == 1 {
		last := leafs[len(leafs)-1]
		leafs = append(leafs, &Node[T]{Hash: last.Hash, Value: last.Value, leaf: true, dup: true, tree: t})
	}

	root, err := buildIntermediate(leafs, t)
	if err != nil {
		return err
	}

	t.Root = root
	t.Leafs = leafs
	t.MerkleRoot = root.Hash

	return nil
}

// Values returns the unique values stored in the tree, dropping the
// duplicated last leaf introduced to balance an odd-sized input.
func (t *Tree[T]) Values() []T {
	values := make([]T, 0, len(t.Leafs))
	for _, node := range t.Leafs {
		values = append(values, node.Value)
	}

	if l := len(t.Leafs); l >= 2 && bytes.Equal(t.Leafs[l-1].Hash, t.Leafs[l-2].Hash) && t.Leafs[l-1].dup {
		return values[:l-1]
	}

	return values
}

// RootHex returns the merkle root as a lowercase hex string, the form
// carried in a block's merkle_root field.
func (t *Tree[T]) RootHex() string {
	return hex.EncodeToString(t.MerkleRoot)
}

// Verify recomputes every level of the tree bottom-up and reports whether
// the result matches the recorded MerkleRoot.
func (t *Tree[T]) Verify() error {
	root, err := t.Root.recompute()
	if err != nil {
		return err
	}

	if !bytes.Equal(t.MerkleRoot, root) {
		return errors.New("merkle: recomputed root does not match")
	}

	return nil
}

// =============================================================================

// Node represents a node, root, or leaf in the tree.
type Node[T Hashable[T]] struct {
	tree   *Tree[T]
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   []byte
	Value  T
	leaf   bool
	dup    bool
}

func (n *Node[T]) recompute() ([]byte, error) {
	if n.leaf {
		return n.Value.Hash()
	}

	left, err := n.Left.recompute()
	if err != nil {
		return nil, err
	}

	right, err := n.Right.recompute()
	if err != nil {
		return nil, err
	}

	h := n.tree.hashStrategy()
	if _, err := h.Write(append(left, right...)); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

func (n *Node[T]) String() string {
	return fmt.Sprintf("leaf=%t dup=%t hash=%x", n.leaf, n.dup, n.Hash)
}

// =============================================================================

// buildIntermediate constructs the intermediate and root levels of the tree
// from a level of nodes, pairing and hashing left-to-right.
func buildIntermediate[T Hashable[T]](nl []*Node[T], t *Tree[T]) (*Node[T], error) {
	var nodes []*Node[T]

	for i := 0; i < len(nl); i += 2 {
		left, right := i, i+1
		if right == len(nl) {
			right = i
		}

		h := t.hashStrategy()
		if _, err := h.Write(append(append([]byte{}, nl[left].Hash...), nl[right].Hash...)); err != nil {
			return nil, err
		}

		n := Node[T]{Left: nl[left], Right: nl[right], Hash: h.Sum(nil), tree: t}
		nl[left].Parent = &n
		nl[right].Parent = &n

		nodes = append(nodes, &n)

		if len(nl) == 2 {
			return &n, nil
		}
	}

	return buildIntermediate(nodes, t)
}
