package layer

import (
	"context"
	"reflect"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphNode is the payload type GraphMirror accepts: it is upserted as a
// (:PathNode {path, kind, ...props}) node, with an edge from its parent
// path's node, so the trie's shape is mirrored into the graph as it
// grows.
type GraphNode struct {
	Kind  string
	Props map[string]any
}

var graphNodeType = reflect.TypeOf(GraphNode{})

// GraphMirror is a C6 provider that projects inserted GraphNode values
// into Neo4j, one PathNode per PathSpace path, linked to its parent by a
// CHILD_OF edge. Reads are served from the graph itself.
type GraphMirror struct {
	prefix string
	driver neo4j.DriverWithContext
}

// NewGraphMirror wraps an already-constructed driver.
func NewGraphMirror(driver neo4j.DriverWithContext) *GraphMirror {
	return &GraphMirror{driver: driver}
}

func parentOf(p string) string {
	it := path.NewIterator(p)
	var segs []string
	for !it.AtEnd() {
		segs = append(segs, it.Component())
		it.Advance()
	}
	if len(segs) <= 1 {
		return "/"
	}
	parent := ""
	for _, s := range segs[:len(segs)-1] {
		parent += "/" + s
	}
	return parent
}

func (g *GraphMirror) In(tail path.Iterator, value any, opts core.InOptions) InsertReturn {
	node, ok := value.(GraphNode)
	if !ok {
		return InsertReturn{Errors: []error{core.New(core.CodeInvalidType, "graphmirror accepts only GraphNode").WithPath(tail.Full())}}
	}

	fullPath := g.prefix + tail.Full()
	ctx := context.Background()
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	props := map[string]any{"path": fullPath, "kind": node.Kind}
	for k, v := range node.Props {
		props[k] = v
	}

	_, err := session.Run(ctx,
		`MERGE (n:PathNode {path: $path}) SET n += $props
		 WITH n
		 MERGE (p:PathNode {path: $parent})
		 MERGE (p)-[:CHILD_OF]->(n)`,
		map[string]any{"path": fullPath, "parent": parentOf(fullPath), "props": props},
	)
	if err != nil {
		return InsertReturn{Errors: []error{core.Wrap(core.CodeUnknownError, "neo4j merge failed", err).WithPath(tail.Full())}}
	}
	return InsertReturn{NbrValuesInserted: 1}
}

func (g *GraphMirror) Out(tail path.Iterator, want reflect.Type, opts core.Out) (any, error) {
	if want != graphNodeType {
		return nil, core.ErrTypeMismatch
	}

	fullPath := g.prefix + tail.Full()
	ctx := context.Background()
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `MATCH (n:PathNode {path: $path}) RETURN n`, map[string]any{"path": fullPath})
	if err != nil {
		return nil, core.Wrap(core.CodeUnknownError, "neo4j query failed", err).WithPath(tail.Full())
	}
	if !result.Next(ctx) {
		return nil, core.ErrNoObjectFound
	}
	record := result.Record()
	rawNode, ok := record.Get("n")
	if !ok {
		return nil, core.ErrNoObjectFound
	}
	n, ok := rawNode.(neo4j.Node)
	if !ok {
		return nil, core.New(core.CodeUnknownError, "unexpected neo4j record shape").WithPath(tail.Full())
	}
	kind, _ := n.Props["kind"].(string)
	return GraphNode{Kind: kind, Props: n.Props}, nil
}

func (g *GraphMirror) Shutdown() {
	_ = g.driver.Close(context.Background())
}

func (g *GraphMirror) Notify(p string) {}
func (g *GraphMirror) AdoptContextAndPrefix(bus *notify.Bus, prefix string) { g.prefix = prefix }
