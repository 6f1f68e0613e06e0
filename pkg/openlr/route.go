package openlr

import (
	"context"
	"math"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/expansion"
	"github.com/lintang-b-s/olrwebtool/pkg/mapreader"
)

// Route connects the candidate of one LRP to the candidate of the next.
type Route struct {
	Start  Candidate
	End    Candidate
	Lines  []*datastructure.DirectedLine
	Length float64
}

type searchState struct {
	line *datastructure.DirectedLine
	// dist from the start candidate to the beginning of line.
	dist float64
	prev datastructure.LineID
	root bool
}

// shortestRoute runs Dijkstra over directed lines from start to end. Lines whose FRC is less
// important than lfrc are not entered, except for the end line itself.
func (d *Dereferencer) shortestRoute(ctx context.Context, rdr mapreader.MapReader, start, end Candidate,
	lfrc datastructure.FRC, maxLength float64) (Route, bool, error) {
	if start.Line.ID == end.Line.ID && end.Offset >= start.Offset {
		return Route{
			Start: start, End: end,
			Lines:  []*datastructure.DirectedLine{start.Line},
			Length: end.Offset - start.Offset,
		}, true, nil
	}

	states := map[datastructure.LineID]*searchState{
		start.Line.ID: {line: start.Line, dist: -start.Offset, root: true},
	}
	pqNodes := make(map[datastructure.LineID]*datastructure.PriorityQueueNode[datastructure.LineID])
	settled := make(map[datastructure.LineID]struct{})

	pq := datastructure.NewFourAryHeap[datastructure.LineID]()
	first := datastructure.NewPriorityQueueNode(-start.Offset, start.Line.ID)
	pq.Insert(first)
	pqNodes[start.Line.ID] = first

	for !pq.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return Route{}, false, err
		}
		node, err := pq.ExtractMin()
		if err != nil {
			break
		}
		id := node.GetItem()
		settled[id] = struct{}{}
		st := states[id]

		if id == end.Line.ID && !st.root {
			total := st.dist + end.Offset
			if total > maxLength {
				return Route{}, false, nil
			}
			return Route{Start: start, End: end, Lines: backtrack(states, id), Length: total}, true, nil
		}

		reach := st.dist + st.line.Length
		if reach > maxLength {
			continue
		}

		next, err := rdr.OutgoingLines(ctx, st.line.EndNode)
		if err != nil {
			return Route{}, false, err
		}
		// turning back onto the other leg of the same road is only allowed at a dead end.
		deadEnd := onlyPeers(id, next)
		for _, out := range next {
			if !deadEnd && expansion.ArePeers(id, out.ID) {
				continue
			}
			if out.FRC > lfrc && out.ID != end.Line.ID {
				continue
			}
			if _, done := settled[out.ID]; done {
				continue
			}
			if prev, seen := states[out.ID]; seen {
				if reach >= prev.dist {
					continue
				}
				prev.dist, prev.prev = reach, id
				if err := pq.DecreaseKey(pqNodes[out.ID], reach); err != nil {
					return Route{}, false, err
				}
				continue
			}
			states[out.ID] = &searchState{line: out, dist: reach, prev: id}
			n := datastructure.NewPriorityQueueNode(reach, out.ID)
			pqNodes[out.ID] = n
			pq.Insert(n)
		}
	}
	return Route{}, false, nil
}

func onlyPeers(id datastructure.LineID, lines []*datastructure.DirectedLine) bool {
	for _, l := range lines {
		if !expansion.ArePeers(id, l.ID) {
			return false
		}
	}
	return true
}

func backtrack(states map[datastructure.LineID]*searchState, last datastructure.LineID) []*datastructure.DirectedLine {
	var lines []*datastructure.DirectedLine
	for id := last; ; {
		st := states[id]
		lines = append(lines, st.line)
		if st.root {
			break
		}
		id = st.prev
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines
}

// acceptable reports whether a route of length fits the DNP of its LRP.
func (d *Dereferencer) acceptable(length, dnp float64) bool {
	return math.Abs(length-dnp) <= d.maxDNPError(dnp)
}

func (d *Dereferencer) maxDNPError(dnp float64) float64 {
	return math.Max(dnp*d.cfg.MaxDNPDeviation, d.cfg.ToleratedDNPDeviation)
}
