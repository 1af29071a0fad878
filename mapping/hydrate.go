package mapping

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nioertel/neo4j-ogm/metadata"
)

// Mapper turns result rows into linked domain objects. It holds no per-unit
// of work state and may be shared.
type Mapper struct {
	model  *metadata.Model
	logger *zap.Logger
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithMapperLogger sets the logger of a Mapper.
func WithMapperLogger(l *zap.Logger) MapperOption {
	return func(m *Mapper) { m.logger = l }
}

// NewMapper returns a mapper for the given model.
func NewMapper(model *metadata.Model, opts ...MapperOption) *Mapper {
	m := &Mapper{model: model, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hydrate maps rows into objects registered in ctx and returns the requested
// roots, de-duplicated, in encounter order. Without root specs every node
// entity of every row is returned.
//
// Each row is planned completely before ctx or any tracked object is touched,
// so a row that fails with a *MappingError leaves ctx exactly as the previous
// rows left it. Rows before the failing one stay committed.
func (m *Mapper) Hydrate(ctx *Context, rows []Row, roots ...RootSpec) ([]any, error) {
	var out []any
	seen := make(map[any]bool)
	add := func(obj any) {
		if obj != nil && !seen[obj] {
			seen[obj] = true
			out = append(out, obj)
		}
	}

	for i, row := range rows {
		p, err := m.plan(ctx, i, row)
		if err != nil {
			m.logger.Debug("row not mapped", zap.Int("row", i), zap.Error(err))
			return out, err
		}
		p.apply(ctx)
		for _, obj := range p.roots(row, roots) {
			add(obj)
		}
	}
	m.logger.Debug("rows hydrated", zap.Int("rows", len(rows)), zap.Int("roots", len(out)))
	return out, nil
}

type plannedNode struct {
	id      int64
	class   *metadata.ClassModel
	obj     any
	isNew   bool
	scratch any // refreshed property values for an existing object
	labels  []string
	props   map[string]any
	touched bool
}

type plannedLink struct {
	field  *metadata.FieldModel
	owner  any
	target any
}

type plannedRel struct {
	snapshot RelationshipSnapshot
	class    *metadata.ClassModel // nil for plain associations
	obj      any
	isNew    bool
	scratch  any
	start    any
	end      any
	links    []plannedLink
}

type rowPlan struct {
	row       int
	nodes     map[int64]*plannedNode
	nodeOrder []*plannedNode
	rels      map[int64]*plannedRel
	relOrder  []*plannedRel
}

func (m *Mapper) plan(ctx *Context, rowIndex int, row Row) (*rowPlan, error) {
	var nodes []NodeRecord
	var rels []RelationshipRecord
	for _, cell := range row.Values {
		flatten(cell, &nodes, &rels)
	}

	p := &rowPlan{
		row:   rowIndex,
		nodes: make(map[int64]*plannedNode, len(nodes)),
		rels:  make(map[int64]*plannedRel, len(rels)),
	}
	// nodes first so relationships can resolve endpoints regardless of the
	// column order
	for _, rec := range nodes {
		if _, ok := p.nodes[rec.ID]; ok {
			continue
		}
		pn, err := m.planNode(ctx, rowIndex, rec)
		if err != nil {
			return nil, err
		}
		p.nodes[rec.ID] = pn
		p.nodeOrder = append(p.nodeOrder, pn)
	}
	for _, rec := range rels {
		if _, ok := p.rels[rec.ID]; ok {
			continue
		}
		pr, err := m.planRelationship(ctx, p, rec)
		if err != nil {
			return nil, err
		}
		if pr == nil {
			continue
		}
		p.rels[rec.ID] = pr
		p.relOrder = append(p.relOrder, pr)
	}
	return p, nil
}

func (m *Mapper) planNode(ctx *Context, rowIndex int, rec NodeRecord) (*plannedNode, error) {
	if obj, ok := ctx.Node(rec.ID); ok {
		class, _ := m.model.ClassOf(obj)
		pn := &plannedNode{id: rec.ID, class: class, obj: obj, labels: rec.Labels}
		snap, _ := ctx.NodeSnapshot(rec.ID)
		// compare in the canonical form the snapshot was taken in
		scratch, props, err := m.materialize(rowIndex, class, rec.Props)
		if err != nil {
			return nil, err
		}
		if len(ChangedProps(snap.Props, props)) > 0 {
			pn.scratch, pn.props, pn.touched = scratch, props, true
		} else {
			pn.props = snap.Props
			pn.touched = !sameLabels(snap.Labels, rec.Labels)
		}
		return pn, nil
	}

	classes := m.model.NodeClassesFor(rec.Labels)
	switch len(classes) {
	case 0:
		return nil, &MappingError{Row: rowIndex, Reason: fmt.Sprintf("no class maps labels [%s]", strings.Join(rec.Labels, ", "))}
	case 1:
	default:
		names := make([]string, len(classes))
		for i, c := range classes {
			names[i] = c.Name
		}
		return nil, &MappingError{Row: rowIndex, Reason: fmt.Sprintf("labels [%s] are ambiguous between %s", strings.Join(rec.Labels, ", "), strings.Join(names, ", "))}
	}
	class := classes[0]
	obj, props, err := m.materialize(rowIndex, class, rec.Props)
	if err != nil {
		return nil, err
	}
	return &plannedNode{id: rec.ID, class: class, obj: obj, isNew: true, labels: rec.Labels, props: props, touched: true}, nil
}

// materialize builds a detached instance of class holding the given raw
// properties and returns it along with its canonical property map.
func (m *Mapper) materialize(rowIndex int, class *metadata.ClassModel, raw map[string]any) (any, map[string]any, error) {
	obj, err := newInstance(class)
	if err != nil {
		return nil, nil, &MappingError{Row: rowIndex, Class: class.Name, Reason: err.Error()}
	}
	for _, f := range class.PropertyFields() {
		value := raw[f.Property]
		if err := setProperty(f, obj, value); err != nil {
			return nil, nil, &MappingError{Row: rowIndex, Class: class.Name, Field: f.Name, Value: value, Reason: err.Error()}
		}
	}
	props, err := Properties(class, obj)
	if err != nil {
		return nil, nil, &MappingError{Row: rowIndex, Class: class.Name, Reason: err.Error()}
	}
	return obj, props, nil
}

func (m *Mapper) planRelationship(ctx *Context, p *rowPlan, rec RelationshipRecord) (*plannedRel, error) {
	start, startClass := p.lookup(ctx, m.model, rec.StartID)
	end, endClass := p.lookup(ctx, m.model, rec.EndID)
	if start == nil || end == nil {
		// the object graph cannot hold a relationship without both endpoints
		return nil, nil
	}

	pr := &plannedRel{
		snapshot: RelationshipSnapshot{ID: rec.ID, Type: rec.Type, StartID: rec.StartID, EndID: rec.EndID},
		start:    start,
		end:      end,
	}

	var candidates []*metadata.ClassModel
	for _, rc := range m.model.RelationshipEntities(rec.Type) {
		if startClass.Accepts(rc.StartNode) && endClass.Accepts(rc.EndNode) {
			candidates = append(candidates, rc)
		}
	}
	if len(candidates) > 1 {
		return nil, &MappingError{Row: p.row, Reason: fmt.Sprintf("relationship %d of type %s is ambiguous between %d relationship entities", rec.ID, rec.Type, len(candidates))}
	}

	if len(candidates) == 1 {
		rc := candidates[0]
		pr.class = rc
		pr.snapshot.Entity = true
		if obj, ok := ctx.RelationshipEntity(rec.ID); ok {
			pr.obj = obj
			prev, _ := ctx.Relationship(rec.ID)
			scratch, props, err := m.materialize(p.row, rc, rec.Props)
			if err != nil {
				return nil, err
			}
			if len(ChangedProps(prev.Props, props)) > 0 {
				pr.scratch = scratch
				pr.snapshot.Props = props
			} else {
				pr.snapshot.Props = prev.Props
			}
		} else {
			obj, props, err := m.materialize(p.row, rc, rec.Props)
			if err != nil {
				return nil, err
			}
			pr.obj, pr.isNew = obj, true
			pr.snapshot.Props = props
		}
		for _, f := range startClass.RelationshipFields() {
			if f.Relationship.Type == rec.Type && f.Relationship.ViaEntity && f.Relationship.Direction != metadata.Incoming && rc.Accepts(f) {
				pr.links = append(pr.links, plannedLink{field: f, owner: start, target: pr.obj})
			}
		}
		for _, f := range endClass.RelationshipFields() {
			if f.Relationship.Type == rec.Type && f.Relationship.ViaEntity && f.Relationship.Direction != metadata.Outgoing && rc.Accepts(f) {
				pr.links = append(pr.links, plannedLink{field: f, owner: end, target: pr.obj})
			}
		}
		return pr, nil
	}

	for _, f := range startClass.RelationshipFields() {
		if f.Relationship.Type == rec.Type && !f.Relationship.ViaEntity && f.Relationship.Direction != metadata.Incoming && endClass.Accepts(f) {
			pr.links = append(pr.links, plannedLink{field: f, owner: start, target: end})
		}
	}
	for _, f := range endClass.RelationshipFields() {
		if f.Relationship.Type == rec.Type && !f.Relationship.ViaEntity && f.Relationship.Direction != metadata.Outgoing && startClass.Accepts(f) {
			pr.links = append(pr.links, plannedLink{field: f, owner: end, target: start})
		}
	}
	if len(pr.links) == 0 {
		return nil, nil
	}
	return pr, nil
}

// lookup resolves a node id against the row plan first, then the context.
func (p *rowPlan) lookup(ctx *Context, model *metadata.Model, id int64) (any, *metadata.ClassModel) {
	if pn, ok := p.nodes[id]; ok {
		return pn.obj, pn.class
	}
	if obj, ok := ctx.Node(id); ok {
		class, _ := model.ClassOf(obj)
		return obj, class
	}
	return nil, nil
}

// apply commits a plan. It cannot fail: every conversion happened while planning.
func (p *rowPlan) apply(ctx *Context) {
	// register before populating relationships so cycles resolve to the
	// same instances
	for _, pn := range p.nodeOrder {
		switch {
		case pn.isNew:
			ctx.RegisterNode(pn.obj, pn.id, NodeSnapshot{Labels: pn.labels, Props: pn.props})
		case pn.scratch != nil:
			copyProperties(pn.class, pn.scratch, pn.obj)
			ctx.SetNodeSnapshot(pn.id, NodeSnapshot{Labels: pn.labels, Props: pn.props})
		case pn.touched:
			ctx.SetNodeSnapshot(pn.id, NodeSnapshot{Labels: pn.labels, Props: pn.props})
		}
	}
	for _, pr := range p.relOrder {
		if pr.class != nil {
			if pr.isNew {
				link(pr.class.StartNode, pr.obj, pr.start)
				link(pr.class.EndNode, pr.obj, pr.end)
			} else if pr.scratch != nil {
				copyProperties(pr.class, pr.scratch, pr.obj)
			}
			ctx.RegisterRelationshipEntity(pr.obj, pr.snapshot)
		} else {
			ctx.PutRelationship(pr.snapshot)
		}
		for _, l := range pr.links {
			link(l.field, l.owner, l.target)
		}
	}
}

// roots picks the root objects of one row.
func (p *rowPlan) roots(row Row, specs []RootSpec) []any {
	var out []any
	if len(specs) == 0 {
		for _, pn := range p.nodeOrder {
			out = append(out, pn.obj)
		}
		return out
	}
	for _, spec := range specs {
		if spec.Column != "" {
			cell, ok := row.Get(spec.Column)
			if !ok {
				continue
			}
			var nodes []NodeRecord
			var rels []RelationshipRecord
			flatten(cell, &nodes, &rels)
			for _, rec := range nodes {
				if pn := p.nodes[rec.ID]; pn != nil && (spec.Class == "" || pn.class.IsA(spec.Class)) {
					out = append(out, pn.obj)
				}
			}
			for _, rec := range rels {
				if pr := p.rels[rec.ID]; pr != nil && pr.class != nil && (spec.Class == "" || pr.class.IsA(spec.Class)) {
					out = append(out, pr.obj)
				}
			}
			continue
		}
		for _, pn := range p.nodeOrder {
			if pn.class.IsA(spec.Class) {
				out = append(out, pn.obj)
			}
		}
		for _, pr := range p.relOrder {
			if pr.class != nil && pr.class.IsA(spec.Class) {
				out = append(out, pr.obj)
			}
		}
	}
	return out
}

func copyProperties(class *metadata.ClassModel, from, to any) {
	for _, f := range class.PropertyFields() {
		fieldOf(to, f).Set(fieldOf(from, f))
	}
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, l := range a {
		set[l] = true
	}
	for _, l := range b {
		if !set[l] {
			return false
		}
	}
	return true
}
