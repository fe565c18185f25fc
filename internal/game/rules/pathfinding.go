package rules

import (
	"container/heap"
	"sort"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game/board"
)

// PathOptions tunes a path search.
type PathOptions struct {
	// MaxExpansions bounds the number of nodes popped from the frontier.
	// Zero means width*height of the grid.
	MaxExpansions int
	// Passable adds a caller predicate (for example, tile occupancy) on top
	// of the grid's own blocked check. Nil allows every open tile.
	Passable func(board.Coord) bool
}

type pathNode struct {
	pos   board.Coord
	g     int
	h     int
	index int
}

// frontier is a min-heap ordered by f = g + h, then h, then coordinate, so
// equal-priority nodes always pop in the same order.
type frontier []*pathNode

func (pq frontier) Len() int { return len(pq) }

func (pq frontier) Less(i, j int) bool {
	fi, fj := pq[i].g+pq[i].h, pq[j].g+pq[j].h
	if fi != fj {
		return fi < fj
	}
	if pq[i].h != pq[j].h {
		return pq[i].h < pq[j].h
	}
	return pq[i].pos.Less(pq[j].pos)
}

func (pq frontier) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *frontier) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*pq)
	*pq = append(*pq, n)
}

func (pq *frontier) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// AStar finds the cheapest 4-directional path from start to goal whose summed
// entry cost stays within maxCost. The returned path includes both endpoints.
// ok is false when the goal is out of bounds, impassable, unreachable within
// maxCost, or the expansion budget runs out.
func AStar(grid *board.Grid, start, goal board.Coord, maxCost int, opts PathOptions) ([]board.Coord, bool) {
	if grid == nil || !grid.InBounds(start) || !grid.InBounds(goal) {
		return nil, false
	}
	if start == goal {
		return []board.Coord{start}, true
	}
	if maxCost < 0 || !canEnter(grid, goal, opts) {
		return nil, false
	}

	budget := opts.MaxExpansions
	if budget <= 0 {
		budget = grid.Width() * grid.Height()
	}

	best := map[board.Coord]int{start: 0}
	parent := make(map[board.Coord]board.Coord)
	closed := make(map[board.Coord]bool)

	open := &frontier{}
	heap.Push(open, &pathNode{pos: start, g: 0, h: board.Manhattan(start, goal)})

	expansions := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if closed[cur.pos] || cur.g > best[cur.pos] {
			continue
		}
		if cur.pos == goal {
			return rebuildPath(parent, start, goal), true
		}
		expansions++
		if expansions > budget {
			return nil, false
		}
		closed[cur.pos] = true

		for _, next := range board.Neighbors4(cur.pos) {
			if closed[next] || !canEnter(grid, next, opts) {
				continue
			}
			g := cur.g + grid.Cost(next)
			if g > maxCost {
				continue
			}
			if prev, seen := best[next]; seen && g >= prev {
				continue
			}
			best[next] = g
			parent[next] = cur.pos
			heap.Push(open, &pathNode{pos: next, g: g, h: board.Manhattan(next, goal)})
		}
	}
	return nil, false
}

// PathCost sums the entry cost of every step after the first coordinate.
func PathCost(grid *board.Grid, path []board.Coord) int {
	total := 0
	for i := 1; i < len(path); i++ {
		total += grid.Cost(path[i])
	}
	return total
}

// Reachable returns every coordinate reachable from start within budget, in
// lexicographic order, start included.
func Reachable(grid *board.Grid, start board.Coord, budget int, opts PathOptions) []board.Coord {
	if grid == nil || !grid.InBounds(start) || budget < 0 {
		return nil
	}
	best := map[board.Coord]int{start: 0}
	open := &frontier{}
	heap.Push(open, &pathNode{pos: start})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if cur.g > best[cur.pos] {
			continue
		}
		for _, next := range board.Neighbors4(cur.pos) {
			if !canEnter(grid, next, opts) {
				continue
			}
			g := cur.g + grid.Cost(next)
			if g > budget {
				continue
			}
			if prev, seen := best[next]; seen && g >= prev {
				continue
			}
			best[next] = g
			heap.Push(open, &pathNode{pos: next, g: g})
		}
	}

	out := make([]board.Coord, 0, len(best))
	for c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func canEnter(grid *board.Grid, c board.Coord, opts PathOptions) bool {
	if !grid.Passable(c) {
		return false
	}
	return opts.Passable == nil || opts.Passable(c)
}

func rebuildPath(parent map[board.Coord]board.Coord, start, goal board.Coord) []board.Coord {
	path := []board.Coord{goal}
	for cur := goal; cur != start; {
		cur = parent[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
