package extsort

import (
	"log/slog"
	"math"
	"os"
)

// removeChunkFile deletes the on-disk file for id, used once its parent
// merge task has consumed it. Best-effort: an already-missing file is not
// an error, and any other failure is logged and swallowed rather than
// failing the run over a temp-file cleanup problem.
func removeChunkFile(id ChunkId, chunkDir, separator string) {
	path := id.Path(chunkDir, separator)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove intermediate chunk file", "path", path, "err", err)
	}
}

// taskTreeNode is one node of the merge task tree: a set of input chunk ids
// from lower levels to merge into one output chunk at level (outID.Level
// equals level). Leaves of the tree are never
// materialized as nodes; they are the level-0 chunks a sort task produced.
type taskTreeNode struct {
	level  uint32
	inputs []ChunkId
	outID  ChunkId
}

// buildTaskTree arranges nChunks level-0 chunks into merge groups of at
// most fanIn, repeating level over level until one chunk remains, and
// returns the nodes in level order (all level-1 nodes before any level-2
// node) so a breadth-first worker queue processes every level before the
// next, keeping the merge schedule level-monotone.
//
// When fanIn is 0, it is computed from treeHeight so that roughly
// nChunks^(1/treeHeight) chunks merge per group at each level. flatMode
// collapses the whole run into one node regardless of fanIn.
func buildTaskTree(nChunks int, fanIn int, treeHeight int, flatMode bool) []taskTreeNode {
	if nChunks <= 1 {
		return nil
	}

	if flatMode {
		inputs := make([]ChunkId, nChunks)
		for i := range inputs {
			inputs[i] = ChunkId{Level: 0, ID: uint32(i)}
		}
		return []taskTreeNode{{
			level:  1,
			inputs: inputs,
			outID:  ChunkId{Level: 1, ID: 0},
		}}
	}

	if fanIn <= 0 {
		fanIn = autoFanIn(nChunks, treeHeight)
	}
	if fanIn < 2 {
		fanIn = 2
	}

	var nodes []taskTreeNode
	level := uint32(0)
	current := make([]ChunkId, nChunks)
	for i := range current {
		current[i] = ChunkId{Level: 0, ID: uint32(i)}
	}

	for len(current) > 1 {
		level++
		alloc := newChunkIDAllocator(level)

		groups, passthrough := partitionIntoGroups(current, fanIn)
		next := make([]ChunkId, 0, len(groups)+len(passthrough))
		for _, group := range groups {
			out := alloc.Next()
			nodes = append(nodes, taskTreeNode{level: level, inputs: group, outID: out})
			next = append(next, out)
		}
		next = append(next, passthrough...)
		current = next
	}
	return nodes
}

// partitionIntoGroups splits ids into groups of size in [2, fanIn],
// preserving the fan-in bound invariant (every merge task has between 2
// and fanIn inputs; singleton groups never occur). When len(ids) isn't a
// clean multiple of fanIn, a remainder of two or more ids forms its own
// smaller group; a remainder of one id is rebalanced with the last full
// group, which gives up one id so both groups have at least 2. If even that
// isn't possible (fanIn == 2 and a single id is left over), that id passes
// through unmerged to the next level instead of being forced into an
// invalid group.
func partitionIntoGroups(ids []ChunkId, fanIn int) (groups [][]ChunkId, passthrough []ChunkId) {
	n := len(ids)
	full := n / fanIn
	rem := n % fanIn

	switch {
	case rem == 0:
		// exact fit
	case rem >= 2:
		full++ // remainder stands alone as a valid smaller group
	case fanIn >= 3:
		// Borrow one id from the last full group to turn what would be
		// a (fanIn, 1) split into two valid groups.
		full++
	default:
		// fanIn == 2 and exactly one id is left over: no way to form a
		// second valid group from it, so it passes through untouched.
		passthrough = append(passthrough, ids[n-1])
		ids = ids[:n-1]
	}

	groups = make([][]ChunkId, 0, full)
	pos := 0
	for g := 0; g < full; g++ {
		size := fanIn
		remaining := full - g
		idsLeft := len(ids) - pos
		if remaining == 1 {
			size = idsLeft // last group absorbs whatever remains
		} else if idsLeft-fanIn*(remaining-1) < 2 {
			// Borrowing case: shrink this group by one so the next
			// (final) group has at least 2.
			size = fanIn - 1
		}
		groups = append(groups, append([]ChunkId(nil), ids[pos:pos+size]...))
		pos += size
	}
	return groups, passthrough
}

// autoFanIn picks a branching factor so that treeHeight levels of merging
// reduce nChunks level-0 chunks to one, rounded to the nearest integer >= 2.
func autoFanIn(nChunks int, treeHeight int) int {
	if treeHeight < 1 {
		treeHeight = 1
	}
	f := math.Pow(float64(nChunks), 1.0/float64(treeHeight))
	k := int(math.Round(f))
	if k < 2 {
		k = 2
	}
	return k
}
