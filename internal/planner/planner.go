package planner

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/axonops/mygrate/internal/schema"
)

// Result is the outcome of one Plan call.
type Result struct {
	RunID      uuid.UUID
	Operations []Operation
	Errors1215 []string
}

// Len returns the number of operations in the plan.
func (r *Result) Len() int { return len(r.Operations) }

// String renders every operation, one per line, in emission order.
func (r *Result) String() string {
	lines := make([]string, len(r.Operations))
	for i, op := range r.Operations {
		lines[i] = op.String()
	}
	return strings.Join(lines, "\n")
}

// Planner computes migration plans between two Database snapshots.
type Planner struct {
	logger *slog.Logger
}

// New returns a Planner. logger may not be nil.
func New(logger *slog.Logger) *Planner {
	return &Planner{logger: logger}
}

// Plan computes the ordered DDL operations that transform from into to. from
// may be nil, meaning an empty source database (every table in to is newly
// created). The returned Result always carries a fresh RunID, even when
// Errors1215 is non-empty. Dropped tables are not checked for inbound foreign
// keys: a DropTable never produces a 1215 error.
func (p *Planner) Plan(from, to *schema.Database) *Result {
	ops, errs := p.plan(from, to)
	return &Result{
		RunID:      uuid.New(),
		Operations: ops,
		Errors1215: errs,
	}
}

// plan runs the eight-phase algorithm described in spec.md §4. It is called
// recursively, once, as a pre-validation gate: before attempting an
// incremental migration, it checks that to is constructible from scratch at
// all. A schema with a foreign key that can never be satisfied (missing
// table, missing column, missing index, incompatible types) fails that gate
// and the real migration is never attempted — the caller gets the 1215
// errors and an empty operation list, matching what building that table
// piecemeal would eventually hit anyway.
func (p *Planner) plan(from, to *schema.Database) ([]Operation, []string) {
	if from != nil {
		if _, errs := p.plan(nil, to); len(errs) > 0 {
			return nil, errs
		}
	}

	tracking := schema.NewDatabase()
	if from != nil {
		tracking = from.Clone()
	}

	var ops []Operation
	var fkOperations []*AlterTable

	// Phase 1: classify every table name by membership.
	tablesToAdd, tablesToRemove, tablesToUpdate := tracking.DiffTableNames(to)

	// Phase 2: add every table whose foreign keys are already satisfiable,
	// repeating until a full pass makes no progress.
	addOps, pending := processAdds(tracking, to, tablesToAdd)
	ops = append(ops, addOps...)

	// Phase 3: anything still pending is either unbuildable against the full
	// target schema (a real 1215 error) or part of a dependency cycle that a
	// later phase will break.
	var errs []string
	var cycleCandidates []string
	for _, name := range pending {
		target, _ := to.Table(name)
		bad := to.UnfulfilledFKs(target)
		if len(bad) == 0 {
			cycleCandidates = append(cycleCandidates, name)
			continue
		}
		for _, name := range sortedUnfulfilledNames(bad) {
			errs = append(errs, bad[name].Error)
		}
	}
	if len(errs) > 0 {
		p.logger.Warn("schema cannot be fully constructed", "unsatisfiable_fk_count", len(errs))
		return nil, errs
	}

	// Phase 4: apply table updates. FK removals and the column/key "kitchen
	// sink" are safe to apply immediately; FK adds and changes are deferred
	// until every table exists, since an added constraint can reference a
	// table that doesn't exist in tracking yet.
	for _, name := range tablesToUpdate {
		source, _ := tracking.Table(name)
		target, _ := to.Table(name)
		split := DiffTablesSplit(source, target)
		if split.RemovedFKs != nil {
			ops = append(ops, split.RemovedFKs)
			_ = split.RemovedFKs.Apply(tracking)
		}
		if split.KitchenSink != nil {
			ops = append(ops, split.KitchenSink)
			_ = split.KitchenSink.Apply(tracking)
		}
		if split.FKs != nil {
			fkOperations = append(fkOperations, split.FKs)
		}
	}

	// Phase 5: the column adds from phase 4 may have unblocked some of the
	// tables still waiting in cycleCandidates, so give them one more pass.
	retryOps, stillPending := processAdds(tracking, to, cycleCandidates)
	ops = append(ops, retryOps...)

	// Phase 6: break whatever dependency cycle remains. Every remaining
	// table's unfulfilled foreign keys are computed against the tracking
	// schema as it stood at the start of this phase — not updated table by
	// table — so that two tables referencing each other both get their
	// cyclic constraint stripped, symmetrically, rather than the first
	// table processed accidentally "rescuing" the second. The stripped
	// constraints are re-added once every table in the cycle exists, via
	// fkOperations in phase 8.
	type stripped struct {
		table *schema.Table
		alter *AlterTable
	}
	var toCreate []stripped
	for _, name := range stillPending {
		target, _ := to.Table(name)
		bad := tracking.UnfulfilledFKs(target)
		stub := target.Clone()
		alter := NewAlterTable(name)
		for _, c := range target.Constraints() {
			if ufk, broken := bad[c.Name]; broken {
				alter.Add(&AddConstraint{Constraint: ufk.Constraint})
				_ = stub.RemoveConstraint(c.Name)
			}
		}
		toCreate = append(toCreate, stripped{table: stub, alter: alter})
	}
	for _, s := range toCreate {
		op := &CreateTable{Table: s.table}
		ops = append(ops, op)
		_ = op.Apply(tracking)
		if !s.alter.IsEmpty() {
			fkOperations = append(fkOperations, s.alter)
		}
	}

	// Phase 7: drop tables no longer in the target schema.
	for _, name := range tablesToRemove {
		op := &DropTable{Name: name}
		ops = append(ops, op)
		_ = op.Apply(tracking)
	}

	// Phase 8: flush every deferred foreign key add/change. By now every
	// table the deferred constraints reference has been created.
	for _, alter := range fkOperations {
		ops = append(ops, alter)
		_ = alter.Apply(tracking)
	}

	return ops, nil
}

// processAdds creates every table in pending whose foreign keys are already
// satisfiable against tracking, applying each as it's created so that later
// tables in the same pass can depend on it. It repeats until a full pass
// makes no further progress, returning the operations emitted and whatever
// table names are still blocked.
func processAdds(tracking, to *schema.Database, pending []string) ([]Operation, []string) {
	remaining := append([]string(nil), pending...)
	var ops []Operation
	for {
		var blocked []string
		progressed := false
		for _, name := range remaining {
			target, _ := to.Table(name)
			if len(tracking.UnfulfilledFKs(target)) > 0 {
				blocked = append(blocked, name)
				continue
			}
			op := &CreateTable{Table: target}
			ops = append(ops, op)
			_ = op.Apply(tracking)
			progressed = true
		}
		remaining = blocked
		if !progressed || len(remaining) == 0 {
			break
		}
	}
	return ops, remaining
}

// sortedUnfulfilledNames returns bad's keys in a fixed order so Errors1215 is
// deterministic across calls, independent of Go's randomized map iteration.
func sortedUnfulfilledNames(bad map[string]schema.UnfulfilledFK) []string {
	names := make([]string, 0, len(bad))
	for name := range bad {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
