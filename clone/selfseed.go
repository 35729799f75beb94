package clone

import (
	"context"
	"io"
	"sort"

	"github.com/xiaoz/bitasync/dictionary"
	"github.com/xiaoz/bitasync/internal/xerrors"
	"github.com/xiaoz/bitasync/seed"
	"github.com/xiaoz/bitasync/strongsum"
)

// selfSeedPlan is the self-seed reorganization schedule: a processing order
// over descriptors found in the self-seed, plus the set of descriptors
// that had to be buffered in memory to break a dependency cycle.
type selfSeedPlan struct {
	order            []int
	buffered         map[int]bool
	currentPositions map[int][]uint64
}

// occupiedRange is the byte range a self-seed hit still occupies in the
// destination file until its descriptor is read out: [start, end) of the
// previous version's chunk, tagged with the descriptor it will become.
// Self-seed hits partition the previous version's bytes, so these ranges
// never overlap each other, only ever the write range of a chunk being
// rewritten.
type occupiedRange struct {
	start, end uint64
	desc       int
}

// occupiedRanges supports overlap queries against a sorted, non-overlapping
// set of byte ranges, the same shape as bitar's ChunkLocationMap: ranges are
// ordered by start offset, and because they never overlap each other, end
// offsets are monotonic too, so a query can walk backward from the last
// range starting before the query's end and stop at the first range whose
// end no longer exceeds the query's start.
type occupiedRanges []occupiedRange

func newOccupiedRanges(currentPositions map[int][]uint64, sizeOf func(int) uint64) occupiedRanges {
	var ranges occupiedRanges
	for d, positions := range currentPositions {
		size := sizeOf(d)
		for _, p := range positions {
			ranges = append(ranges, occupiedRange{start: p, end: p + size, desc: d})
		}
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	return ranges
}

// overlapping returns the descriptors of every range overlapping
// [queryStart, queryEnd).
func (rs occupiedRanges) overlapping(queryStart, queryEnd uint64) []int {
	i := sort.Search(len(rs), func(i int) bool { return rs[i].start >= queryEnd })
	var hits []int
	for i--; i >= 0 && rs[i].end > queryStart; i-- {
		hits = append(hits, rs[i].desc)
	}
	return hits
}

// buildSelfSeedPlan models self-seed reorganization as a dependency DAG:
// an edge A -> B means chunk A currently occupies byte range chunk B needs
// to write to, so A must be consumed before B's write lands there.
// Dependency is range overlap, not exact-offset equality: self-seed chunk
// sizes and target chunk sizes differ in general, so a target write
// routinely lands mid-chunk of a self-seed occupant rather than exactly on
// its start offset. Nodes with no incoming edges are processed first
// (Kahn's algorithm); when a cycle leaves no zero-indegree node, the
// lowest-indexed remaining node is buffered in memory and its edges are
// broken to make progress.
func buildSelfSeedPlan(idx *dictionary.Index, hits []seed.Hit) selfSeedPlan {
	currentPositions := make(map[int][]uint64)
	for _, h := range hits {
		currentPositions[h.DescriptorIndex] = append(currentPositions[h.DescriptorIndex], h.SeedOffset)
	}

	nodes := make([]int, 0, len(currentPositions))
	for d := range currentPositions {
		nodes = append(nodes, d)
	}
	sort.Ints(nodes)

	ranges := newOccupiedRanges(currentPositions, func(d int) uint64 {
		return uint64(idx.Descriptor(d).UncompressedSize)
	})

	adj := make(map[int]map[int]bool)
	indegree := make(map[int]int)
	for _, d := range nodes {
		adj[d] = make(map[int]bool)
		indegree[d] = 0
	}
	for _, b := range nodes {
		size := uint64(idx.Descriptor(b).UncompressedSize)
		for _, o := range idx.SourceOffsets(b) {
			for _, a := range ranges.overlapping(o, o+size) {
				if a == b {
					continue
				}
				if !adj[a][b] {
					adj[a][b] = true
					indegree[b]++
				}
			}
		}
	}

	remaining := make(map[int]bool, len(nodes))
	for _, d := range nodes {
		remaining[d] = true
	}
	buffered := make(map[int]bool)
	var normalOrder, bufferedOrder []int

	for len(remaining) > 0 {
		cands := make([]int, 0, len(remaining))
		for d := range remaining {
			cands = append(cands, d)
		}
		sort.Ints(cands)

		picked := -1
		for _, d := range cands {
			if indegree[d] == 0 {
				picked = d
				break
			}
		}
		if picked == -1 {
			// Every remaining node has an incoming edge: a cycle. Breaking
			// it means reading the lowest-indexed remaining node's bytes
			// into memory right away (before any write lands), which
			// satisfies every edge pointing AT it without waiting. Its own
			// write, though, still has to wait: the positions it needs to
			// write to may still hold not-yet-read bytes belonging to
			// other nodes, so its write is deferred to bufferedOrder,
			// applied only after every normally-ordered node is done.
			picked = cands[0]
			buffered[picked] = true
			bufferedOrder = append(bufferedOrder, picked)
		} else {
			normalOrder = append(normalOrder, picked)
		}
		delete(remaining, picked)
		for b := range adj[picked] {
			indegree[b]--
		}
		delete(adj, picked)
	}

	order := append(normalOrder, bufferedOrder...)
	return selfSeedPlan{order: order, buffered: buffered, currentPositions: currentPositions}
}

// applySelfSeedPlan executes the schedule: nodes slated for buffering are
// read out of selfSeedData before any writes occur (their positions may be
// overwritten at any point afterward), then every node is written to every
// target offset it needs except the offsets where it is already correctly
// in place.
func (a *Assembler) applySelfSeedPlan(ctx context.Context, plan selfSeedPlan, selfSeedData io.ReaderAt) error {
	buf := make(map[int][]byte, len(plan.buffered))
	for d := range plan.buffered {
		data, err := a.readSelfSeedChunk(selfSeedData, d, plan.currentPositions[d][0])
		if err != nil {
			return err
		}
		buf[d] = data
	}

	for _, d := range plan.order {
		data, ok := buf[d]
		if !ok {
			var err error
			data, err = a.readSelfSeedChunk(selfSeedData, d, plan.currentPositions[d][0])
			if err != nil {
				return err
			}
		}

		self := make(map[uint64]bool, len(plan.currentPositions[d]))
		for _, p := range plan.currentPositions[d] {
			self[p] = true
		}
		for _, o := range a.idx.SourceOffsets(d) {
			if self[o] {
				continue
			}
			if err := a.writer.WriteAt(ctx, o, data); err != nil {
				return err
			}
		}
		a.idx.MarkCovered(d)
	}
	return nil
}

func (a *Assembler) readSelfSeedChunk(r io.ReaderAt, descriptorIndex int, pos uint64) ([]byte, error) {
	desc := a.idx.Descriptor(descriptorIndex)
	buf := make([]byte, desc.UncompressedSize)
	if _, err := r.ReadAt(buf, int64(pos)); err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "read self-seed chunk", err)
	}
	if strongsum.Of(buf) != desc.StrongHash {
		return nil, xerrors.IntegrityFailuref(descriptorIndex, "self-seed chunk at offset %d does not match its strong hash", pos)
	}
	return buf, nil
}
