package ledger

import "financehub/internal/core"

// Change replaces or removes one record. A nil Value removes the record.
type Change struct {
	Kind  core.Kind
	ID    string
	Value core.Record
}

// Patch is an ordered list of changes applied as one unit.
type Patch []Change

func Put(r core.Record) Change {
	return Change{Kind: r.RecordKind(), ID: r.RecordID(), Value: r}
}

func Remove(kind core.Kind, id string) Change {
	return Change{Kind: kind, ID: id}
}

// IDs returns the distinct record ids touched by the patch, in order of first appearance.
func (p Patch) IDs() []string {
	seen := make(map[string]struct{}, len(p))
	out := make([]string, 0, len(p))
	for _, c := range p {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c.ID)
	}
	return out
}

// Op is one persisted write of a mutation. Record is nil when the row is
// removed (non-transaction deletes and permanent deletes).
type Op struct {
	Action  core.AuditAction
	Kind    core.Kind
	ID      string
	Record  core.Record
	Details string
}

func (o Op) change() Change {
	return Change{Kind: o.Kind, ID: o.ID, Value: o.Record}
}

func opPut(action core.AuditAction, r core.Record, details string) Op {
	return Op{Action: action, Kind: r.RecordKind(), ID: r.RecordID(), Record: r, Details: details}
}

func opRemove(action core.AuditAction, kind core.Kind, id, details string) Op {
	return Op{Action: action, Kind: kind, ID: id, Details: details}
}

func opsPatch(ops []Op) Patch {
	p := make(Patch, len(ops))
	for i, o := range ops {
		p[i] = o.change()
	}
	return p
}
