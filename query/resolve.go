package query

import (
	"sort"
	"strings"

	qerrors "github.com/marcinkonwiak/projekt-technologie-obiektowe/query/errors"
)

// ResolvedJoin is one JOIN clause in its final render order: the table it
// brings in and the conditions tying it to tables already placed.
type ResolvedJoin struct {
	Table      TableRef
	Other      TableRef // the already-placed table on the other side
	Kind       JoinKind
	Conditions []ResolvedCondition
}

// ResolvedCondition is a fully qualified equality condition
type ResolvedCondition struct {
	Left  ColumnRef
	Right ColumnRef
}

// Resolution is a linear join order: the root table and the joins to apply
// in sequence, suitable for direct rendering.
type Resolution struct {
	Root  TableRef
	Joins []ResolvedJoin
}

// edge is an internal graph edge; seq orders edges for deterministic traversal.
// Explicit edges keep their authoring index; inferred edges sort after all
// explicit ones.
type edge struct {
	JoinEdge
	seq      int
	inferred bool
}

// Resolve derives a single linear join order from the bound tables, the
// authored joins and the catalog's foreign keys. Tables the user added
// without authoring a join are connected through foreign-key metadata when
// possible. Explicit joins always win over inferred ones for the same table
// pair; two explicit joins for one pair with different shapes fail with
// AmbiguousJoin, and tables left unreachable from the first-added table fail
// with DisconnectedTables.
func (m *Model) Resolve() (*Resolution, error) {
	if len(m.tables) == 0 {
		return nil, qerrors.Wrap(qerrors.ErrInvalidModel, "no tables in query")
	}

	pairKey := func(a, b string) string {
		if a > b {
			a, b = b, a
		}
		return a + "\x00" + b
	}

	edges := make([]edge, 0, len(m.joins))
	explicit := make(map[string]JoinEdge)
	for i, j := range m.joins {
		key := pairKey(j.Left, j.Right)
		if prev, ok := explicit[key]; ok {
			if !sameJoin(prev, j) {
				return nil, qerrors.Wrap(qerrors.ErrAmbiguousJoin,
					"tables %q and %q joined twice with different conditions", j.Left, j.Right)
			}
			continue // identical duplicate, keep the first
		}
		explicit[key] = j
		edges = append(edges, edge{JoinEdge: j, seq: i})
	}

	// Infer edges from foreign keys for pairs without an authored join.
	// Pairs are visited in table-add order so inferred edges linearize the
	// same way every time.
	inferSeq := len(m.joins)
	for ri, right := range m.tables {
		for li := 0; li < ri; li++ {
			left := m.tables[li]
			if _, ok := explicit[pairKey(left.Alias, right.Alias)]; ok {
				continue
			}
			if inferred, ok := m.inferJoin(left, right); ok {
				edges = append(edges, edge{JoinEdge: inferred, seq: inferSeq, inferred: true})
				inferSeq++
			}
		}
	}

	adjacency := make(map[string][]edge, len(m.tables))
	for _, e := range edges {
		adjacency[e.Left] = append(adjacency[e.Left], e)
		adjacency[e.Right] = append(adjacency[e.Right], e)
	}

	root := m.tables[0]
	placed := map[string]bool{root.Alias: true}
	res := &Resolution{Root: root}

	for len(placed) < len(m.tables) {
		best := -1
		var bestEdge edge
		var bestNew string
		for alias := range placed {
			for _, e := range adjacency[alias] {
				other := e.Right
				if other == alias {
					other = e.Left
				}
				if placed[other] {
					continue
				}
				if best < 0 || less(e, other, bestEdge, bestNew) {
					best, bestEdge, bestNew = e.seq, e, other
				}
			}
		}
		if best < 0 {
			var unreachable []string
			for _, t := range m.tables {
				if !placed[t.Alias] {
					unreachable = append(unreachable, t.Alias)
				}
			}
			sort.Strings(unreachable)
			return nil, qerrors.Wrap(qerrors.ErrDisconnectedTables,
				"tables not joined to %q: %s", root.Alias, strings.Join(unreachable, ", "))
		}

		newRef, _ := m.tableRef(bestNew)
		otherAlias := bestEdge.Left
		if otherAlias == bestNew {
			otherAlias = bestEdge.Right
		}
		otherRef, _ := m.tableRef(otherAlias)

		conds := make([]ResolvedCondition, len(bestEdge.Conditions))
		for i, c := range bestEdge.Conditions {
			conds[i] = ResolvedCondition{
				Left:  ColumnRef{Table: bestEdge.Left, Column: c.LeftColumn},
				Right: ColumnRef{Table: bestEdge.Right, Column: c.RightColumn},
			}
		}
		res.Joins = append(res.Joins, ResolvedJoin{
			Table:      newRef,
			Other:      otherRef,
			Kind:       bestEdge.Kind,
			Conditions: conds,
		})
		placed[bestNew] = true
	}
	return res, nil
}

// less orders candidate frontier edges: authored first (lower seq), then by
// the name of the table being attached.
func less(e edge, newAlias string, bestEdge edge, bestNew string) bool {
	if e.seq != bestEdge.seq {
		return e.seq < bestEdge.seq
	}
	return newAlias < bestNew
}

// inferJoin derives an INNER join between two bound tables from foreign-key
// metadata. Relations are probed in both directions; the lexically first
// foreign-key column wins when a table carries several toward the same
// target.
func (m *Model) inferJoin(left, right TableRef) (JoinEdge, bool) {
	if fk, ok := m.firstFK(left.Table, right.Table); ok {
		return JoinEdge{
			Left:       left.Alias,
			Right:      right.Alias,
			Kind:       JoinInner,
			Conditions: []JoinCondition{{LeftColumn: fk.column, RightColumn: fk.refColumn}},
		}, true
	}
	if fk, ok := m.firstFK(right.Table, left.Table); ok {
		return JoinEdge{
			Left:       right.Alias,
			Right:      left.Alias,
			Kind:       JoinInner,
			Conditions: []JoinCondition{{LeftColumn: fk.column, RightColumn: fk.refColumn}},
		}, true
	}
	return JoinEdge{}, false
}

type fkPair struct {
	column    string
	refColumn string
}

func (m *Model) firstFK(from, to string) (fkPair, bool) {
	fks, err := m.snapshot.ForeignKeysOf(from)
	if err != nil {
		return fkPair{}, false
	}
	best := fkPair{}
	found := false
	for _, fk := range fks {
		if fk.ReferencedTable != to {
			continue
		}
		if !found || fk.Column < best.column {
			best = fkPair{column: fk.Column, refColumn: fk.ReferencedColumn}
			found = true
		}
	}
	return best, found
}

func sameJoin(a, b JoinEdge) bool {
	an, bn := a, b
	// normalize orientation for comparison
	if an.Left > an.Right {
		an = flipJoin(an)
	}
	if bn.Left > bn.Right {
		bn = flipJoin(bn)
	}
	if an.Left != bn.Left || an.Right != bn.Right || an.Kind != bn.Kind || len(an.Conditions) != len(bn.Conditions) {
		return false
	}
	for i := range an.Conditions {
		if an.Conditions[i] != bn.Conditions[i] {
			return false
		}
	}
	return true
}

func flipJoin(j JoinEdge) JoinEdge {
	flipped := JoinEdge{Left: j.Right, Right: j.Left, Kind: j.Kind}
	flipped.Conditions = make([]JoinCondition, len(j.Conditions))
	for i, c := range j.Conditions {
		flipped.Conditions[i] = JoinCondition{LeftColumn: c.RightColumn, RightColumn: c.LeftColumn}
	}
	return flipped
}
