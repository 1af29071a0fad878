package cypher

import (
	"go.uber.org/zap"

	"github.com/nioertel/neo4j-ogm/mapping"
	"github.com/nioertel/neo4j-ogm/metadata"
)

// Unlimited is the depth that follows relationships without bound.
const Unlimited = -1

// Compiler computes statement batches for a metadata model. It holds no
// per-unit of work state and may be shared.
type Compiler struct {
	model  *metadata.Model
	logger *zap.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger of a Compiler.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// NewCompiler returns a compiler for the given model.
func NewCompiler(model *metadata.Model, opts ...Option) *Compiler {
	c := &Compiler{model: model, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type visit struct {
	obj   any
	level int
}

type visitedNode struct {
	obj   any
	class *metadata.ClassModel
	level int
}

type plainKey struct {
	typ        string
	start, end any
}

type currentRel struct {
	typ        string
	undirected bool
	start, end any
	obj        any
	class      *metadata.ClassModel
}

type changeSet struct {
	model *metadata.Model
	ctx   *mapping.Context
	depth int
	batch *Batch

	nextRef  Ref
	refs     map[any]Ref
	visited  map[any]bool
	nodes    []visitedNode
	plain    []currentRel
	seen     map[plainKey]bool
	entities []currentRel
	seenRel  map[any]bool
	matched  map[int64]bool
	deleted  map[int64]bool
	deletedN map[int64]bool

	nodeCreates []Statement
	nodeUpdates []Statement
	relDeletes  []Statement
	relCreates  []Statement
	relUpdates  []Statement
	nodeDeletes []Statement
}

func (c *Compiler) newChangeSet(ctx *mapping.Context, depth int) *changeSet {
	return &changeSet{
		model:    c.model,
		ctx:      ctx,
		depth:    depth,
		batch:    &Batch{},
		refs:     make(map[any]Ref),
		visited:  make(map[any]bool),
		seen:     make(map[plainKey]bool),
		seenRel:  make(map[any]bool),
		matched:  make(map[int64]bool),
		deleted:  make(map[int64]bool),
		deletedN: make(map[int64]bool),
	}
}

// ComputeChangeSet walks the object graph from roots, following at most depth
// relationship hops (Unlimited for no bound), and returns the statements that
// bring the store in line with it. Depth 0 saves the roots' own properties
// only.
//
// The context is only read. A *StructuralError is returned, and nothing is
// produced, when the graph violates the mapping.
func (c *Compiler) ComputeChangeSet(ctx *mapping.Context, roots []any, depth int) (*Batch, error) {
	cs := c.newChangeSet(ctx, depth)

	queue := make([]visit, 0, len(roots))
	for _, root := range roots {
		if root == nil {
			continue
		}
		class, ok := c.model.ClassOf(root)
		if !ok {
			return nil, structuralErrorf("", "", "%T is not a mapped type", root)
		}
		if class.IsRelationshipEntity() {
			start, end, err := endpoints(class, root)
			if err != nil {
				return nil, err
			}
			cs.addEntity(class, root, start, end)
			queue = append(queue, visit{obj: start}, visit{obj: end})
			continue
		}
		queue = append(queue, visit{obj: root})
	}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if cs.visited[v.obj] {
			continue
		}
		cs.visited[v.obj] = true
		next, err := cs.visitNode(v)
		if err != nil {
			return nil, err
		}
		queue = append(queue, next...)
	}

	cs.plainRelationships()
	if err := cs.entityRelationships(); err != nil {
		return nil, err
	}
	cs.staleRelationships()

	batch := cs.finish()
	c.logger.Debug("change set computed",
		zap.Int("visited", len(cs.nodes)),
		zap.Int("depth", depth),
		zap.Int("statements", batch.Len()))
	return batch, nil
}

// ComputeDelete returns the statements deleting the given nodes and
// relationship entities. Known relationships of a node are deleted before
// the node itself. Objects the store has never seen are skipped.
func (c *Compiler) ComputeDelete(ctx *mapping.Context, objs ...any) (*Batch, error) {
	cs := c.newChangeSet(ctx, 0)
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		class, ok := c.model.ClassOf(obj)
		if !ok {
			return nil, structuralErrorf("", "", "%T is not a mapped type", obj)
		}
		if class.IsRelationshipEntity() {
			id, ok := ctx.RelationshipEntityID(obj)
			if !ok {
				id, ok = mapping.IdentityOf(class, obj)
			}
			if ok && !cs.deleted[id] {
				cs.deleteRelationship(id)
			}
			continue
		}
		id, ok := ctx.NodeID(obj)
		if !ok {
			id, ok = mapping.IdentityOf(class, obj)
		}
		if !ok || cs.deletedN[id] {
			continue
		}
		for _, rel := range ctx.RelationshipsOf(id) {
			if !cs.deleted[rel.ID] {
				cs.deleteRelationship(rel.ID)
			}
		}
		cs.deletedN[id] = true
		cs.nodeDeletes = append(cs.nodeDeletes, Statement{
			Kind:   DeleteNode,
			Query:  deleteNodeQuery(),
			Params: map[string]any{"id": id},
		})
		cs.batch.deletedNodes = append(cs.batch.deletedNodes, id)
	}
	batch := cs.finish()
	c.logger.Debug("delete computed", zap.Int("statements", batch.Len()))
	return batch, nil
}

func (cs *changeSet) ref() Ref {
	cs.nextRef--
	return cs.nextRef
}

func (cs *changeSet) visitNode(v visit) ([]visit, error) {
	class, ok := cs.model.ClassOf(v.obj)
	if !ok {
		return nil, structuralErrorf("", "", "%T is not a mapped type", v.obj)
	}
	if class.IsRelationshipEntity() {
		return nil, structuralErrorf(class.Name, "", "relationship entity used as a node")
	}
	cs.nodes = append(cs.nodes, visitedNode{obj: v.obj, class: class, level: v.level})
	if err := cs.nodeStatement(class, v.obj); err != nil {
		return nil, err
	}
	if !cs.follows(v.level) {
		return nil, nil
	}

	var next []visit
	for _, f := range class.RelationshipFields() {
		for _, target := range mapping.Related(f, v.obj) {
			if target == nil {
				if f.Relationship.ViaEntity {
					return nil, structuralErrorf(class.Name, f.Name, "nil relationship entity element")
				}
				continue
			}
			targetClass, ok := cs.model.ClassOf(target)
			if !ok {
				return nil, structuralErrorf(class.Name, f.Name, "%T is not a mapped type", target)
			}
			if f.Relationship.ViaEntity {
				start, end, err := endpoints(targetClass, target)
				if err != nil {
					return nil, err
				}
				cs.addEntity(targetClass, target, start, end)
				next = append(next, visit{obj: start, level: v.level + 1}, visit{obj: end, level: v.level + 1})
				continue
			}
			if cs.model.RequiresEntity(f.Relationship.Type) {
				return nil, structuralErrorf(class.Name, f.Name, "relationship %s requires a relationship entity", f.Relationship.Type)
			}
			start, end := v.obj, target
			if f.Relationship.Direction == metadata.Incoming {
				start, end = target, v.obj
			}
			cs.addPlain(f.Relationship.Type, start, end, f.Relationship.Direction == metadata.Undirected)
			next = append(next, visit{obj: target, level: v.level + 1})
		}
	}
	return next, nil
}

func (cs *changeSet) follows(level int) bool {
	return cs.depth < 0 || level < cs.depth
}

func (cs *changeSet) nodeStatement(class *metadata.ClassModel, obj any) error {
	props, err := mapping.Properties(class, obj)
	if err != nil {
		return err
	}

	id, tracked := cs.ctx.NodeID(obj)
	if !tracked {
		detached, ok := mapping.IdentityOf(class, obj)
		if !ok {
			ref := cs.ref()
			cs.refs[obj] = ref
			cs.nodeCreates = append(cs.nodeCreates, Statement{
				Kind:   CreateNode,
				Query:  createNodeQuery(class.Labels),
				Params: map[string]any{"props": props},
				Ref:    ref,
			})
			cs.batch.nodes = append(cs.batch.nodes, nodeChange{obj: obj, class: class, ref: ref, labels: class.Labels, props: props})
			return nil
		}
		// persisted elsewhere; rewrite everything so this unit of work can track it
		stmt, version := versioned(class, detached, props, mapping.CopyProps(props), props)
		stmt.Kind = UpdateNode
		stmt.Query = updateNodeQuery(versionProperty(class))
		cs.nodeUpdates = append(cs.nodeUpdates, stmt)
		cs.batch.nodes = append(cs.batch.nodes, nodeChange{obj: obj, class: class, id: detached, labels: class.Labels, props: props, version: version})
		return nil
	}

	snap, _ := cs.ctx.NodeSnapshot(id)
	changed := mapping.ChangedProps(snap.Props, props)
	if vp := versionProperty(class); vp != "" {
		delete(changed, vp)
	}
	if len(changed) == 0 {
		return nil
	}
	stmt, version := versioned(class, id, snap.Props, changed, props)
	stmt.Kind = UpdateNode
	stmt.Query = updateNodeQuery(versionProperty(class))
	cs.nodeUpdates = append(cs.nodeUpdates, stmt)
	cs.batch.nodes = append(cs.batch.nodes, nodeChange{obj: obj, class: class, id: id, labels: snap.Labels, props: props, version: version})
	return nil
}

// versioned builds the parameters of an update. With a version field the
// persisted version is matched and the next one written to both the changed
// and the full property maps.
func versioned(class *metadata.ClassModel, id int64, persisted, changed, props map[string]any) (Statement, *int64) {
	params := map[string]any{"id": id, "props": changed}
	vp := versionProperty(class)
	if vp == "" {
		return Statement{Params: params, ExpectRows: true}, nil
	}
	expected := versionOf(persisted[vp])
	next := expected + 1
	changed[vp] = next
	props[vp] = next
	params["version"] = expected
	return Statement{Params: params, ExpectRows: true}, &next
}

func versionProperty(class *metadata.ClassModel) string {
	if class.Version == nil {
		return ""
	}
	return class.Version.Property
}

func versionOf(v any) int64 {
	if n, ok := mapping.Canonical(v).(int64); ok {
		return n
	}
	return 0
}

func endpoints(class *metadata.ClassModel, obj any) (any, any, error) {
	start := mapping.Related(class.StartNode, obj)
	end := mapping.Related(class.EndNode, obj)
	if len(start) == 0 || start[0] == nil {
		return nil, nil, structuralErrorf(class.Name, class.StartNode.Name, "relationship entity without start node")
	}
	if len(end) == 0 || end[0] == nil {
		return nil, nil, structuralErrorf(class.Name, class.EndNode.Name, "relationship entity without end node")
	}
	return start[0], end[0], nil
}

func (cs *changeSet) addPlain(typ string, start, end any, undirected bool) {
	key := plainKey{typ: typ, start: start, end: end}
	if cs.seen[key] {
		return
	}
	if undirected && cs.seen[plainKey{typ: typ, start: end, end: start}] {
		return
	}
	cs.seen[key] = true
	cs.plain = append(cs.plain, currentRel{typ: typ, undirected: undirected, start: start, end: end})
}

func (cs *changeSet) addEntity(class *metadata.ClassModel, obj, start, end any) {
	if cs.seenRel[obj] {
		return
	}
	cs.seenRel[obj] = true
	cs.entities = append(cs.entities, currentRel{typ: class.RelationshipType, start: start, end: end, obj: obj, class: class})
}

// nodeParam returns the id of a node, or the ref of the statement creating it.
func (cs *changeSet) nodeParam(obj any) any {
	if id, ok := cs.ctx.NodeID(obj); ok {
		return id
	}
	if ref, ok := cs.refs[obj]; ok {
		return ref
	}
	class, _ := cs.model.ClassOf(obj)
	id, _ := mapping.IdentityOf(class, obj)
	return id
}

func (cs *changeSet) plainRelationships() {
	for _, rel := range cs.plain {
		startID, ok1 := cs.ctx.NodeID(rel.start)
		endID, ok2 := cs.ctx.NodeID(rel.end)
		if ok1 && ok2 {
			if id, found := cs.findPlain(rel, startID, endID); found {
				cs.matched[id] = true
				continue
			}
		}
		cs.createRelationship(rel, map[string]any{})
	}
}

func (cs *changeSet) findPlain(rel currentRel, startID, endID int64) (int64, bool) {
	for _, snap := range cs.ctx.RelationshipsOf(startID) {
		if snap.Entity || snap.Type != rel.typ || cs.matched[snap.ID] {
			continue
		}
		if snap.StartID == startID && snap.EndID == endID {
			return snap.ID, true
		}
		if rel.undirected && snap.StartID == endID && snap.EndID == startID {
			return snap.ID, true
		}
	}
	return 0, false
}

func (cs *changeSet) entityRelationships() error {
	for _, rel := range cs.entities {
		props, err := mapping.Properties(rel.class, rel.obj)
		if err != nil {
			return err
		}

		id, tracked := cs.ctx.RelationshipEntityID(rel.obj)
		if !tracked {
			if detached, ok := mapping.IdentityOf(rel.class, rel.obj); ok {
				stmt, version := versioned(rel.class, detached, props, mapping.CopyProps(props), props)
				stmt.Kind = UpdateRelationship
				stmt.Query = updateRelationshipQuery(versionProperty(rel.class))
				cs.relUpdates = append(cs.relUpdates, stmt)
				cs.batch.rels = append(cs.batch.rels, relChange{obj: rel.obj, class: rel.class, id: detached, typ: rel.typ, start: rel.start, end: rel.end, props: props, version: version})
				continue
			}
			cs.createRelationship(rel, props)
			continue
		}

		snap, _ := cs.ctx.Relationship(id)
		cs.matched[id] = true
		startID, ok1 := cs.ctx.NodeID(rel.start)
		endID, ok2 := cs.ctx.NodeID(rel.end)
		if !ok1 || !ok2 || snap.StartID != startID || snap.EndID != endID || snap.Type != rel.typ {
			// endpoints cannot be changed in place
			if !cs.deleted[id] {
				cs.deleteRelationship(id)
			}
			cs.createRelationship(rel, props)
			continue
		}

		changed := mapping.ChangedProps(snap.Props, props)
		if vp := versionProperty(rel.class); vp != "" {
			delete(changed, vp)
		}
		if len(changed) == 0 {
			continue
		}
		stmt, version := versioned(rel.class, id, snap.Props, changed, props)
		stmt.Kind = UpdateRelationship
		stmt.Query = updateRelationshipQuery(versionProperty(rel.class))
		cs.relUpdates = append(cs.relUpdates, stmt)
		cs.batch.rels = append(cs.batch.rels, relChange{obj: rel.obj, class: rel.class, id: id, typ: rel.typ, start: rel.start, end: rel.end, props: props, version: version})
	}
	return nil
}

func (cs *changeSet) createRelationship(rel currentRel, props map[string]any) {
	ref := cs.ref()
	cs.relCreates = append(cs.relCreates, Statement{
		Kind:  CreateRelationship,
		Query: createRelationshipQuery(rel.typ),
		Params: map[string]any{
			"start": cs.nodeParam(rel.start),
			"end":   cs.nodeParam(rel.end),
			"props": props,
		},
		Ref: ref,
	})
	cs.batch.rels = append(cs.batch.rels, relChange{obj: rel.obj, class: rel.class, ref: ref, typ: rel.typ, start: rel.start, end: rel.end, props: props})
}

func (cs *changeSet) deleteRelationship(id int64) {
	cs.deleted[id] = true
	cs.relDeletes = append(cs.relDeletes, Statement{
		Kind:   DeleteRelationship,
		Query:  deleteRelationshipQuery(),
		Params: map[string]any{"id": id},
	})
	cs.batch.deletedRels = append(cs.batch.deletedRels, id)
}

// staleRelationships deletes the known relationships of inspected nodes that
// the current object graph no longer holds. Only relationships a field of the
// node's class could hold are considered.
func (cs *changeSet) staleRelationships() {
	for _, n := range cs.nodes {
		if !cs.follows(n.level) {
			continue
		}
		id, ok := cs.ctx.NodeID(n.obj)
		if !ok {
			continue
		}
		for _, snap := range cs.ctx.RelationshipsOf(id) {
			if cs.matched[snap.ID] || cs.deleted[snap.ID] {
				continue
			}
			if covers(n.class, snap, id) {
				cs.deleteRelationship(snap.ID)
			}
		}
	}
}

func covers(class *metadata.ClassModel, snap mapping.RelationshipSnapshot, nodeID int64) bool {
	for _, f := range class.RelationshipFields() {
		if f.Relationship.Type != snap.Type || f.Relationship.ViaEntity != snap.Entity {
			continue
		}
		switch f.Relationship.Direction {
		case metadata.Outgoing:
			if snap.StartID == nodeID {
				return true
			}
		case metadata.Incoming:
			if snap.EndID == nodeID {
				return true
			}
		default:
			return true
		}
	}
	return false
}

func (cs *changeSet) finish() *Batch {
	b := cs.batch
	for _, part := range [][]Statement{cs.nodeCreates, cs.nodeUpdates, cs.relDeletes, cs.relCreates, cs.relUpdates, cs.nodeDeletes} {
		b.Statements = append(b.Statements, part...)
	}
	return b
}
