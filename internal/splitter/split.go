// Package splitter partitions an enriched table tree into flat LookML views,
// one for the table and one per repeated boundary, and synthesizes the unnest
// joins that reassemble them in an explore.
package splitter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leaplook/internal/dag"
	"github.com/leapstack-labs/leaplook/internal/mixer"
	starctx "github.com/leapstack-labs/leaplook/internal/starlark"
	"github.com/leapstack-labs/leaplook/pkg/core"
)

// Split walks the mixture depth-first. The root view comes first, followed by
// one view per boundary in traversal order. The explore is nil when the
// dataset disables explores.
func Split(mix *mixer.Mixture, ds *core.DatasetConfig) ([]core.View, *core.Explore, error) {
	root := ds.PrefixViews + mix.Name + ds.SuffixViews

	s := &splitter{
		root:  root,
		joins: dag.NewGraph[core.Join](),
		seen:  map[string]bool{root: true},
	}
	s.views = append(s.views, core.View{
		Name:         root,
		SQLTableName: mix.SQLTableName,
		Description:  mix.Description,
	})
	if err := s.walk(0, mix.Fields, 0); err != nil {
		return nil, nil, err
	}

	if !ds.ExploreEnabled() {
		return s.views, nil, nil
	}

	sorted, err := s.joins.TopologicalSort()
	if err != nil {
		return nil, nil, fmt.Errorf("ordering joins of %s: %w", root, err)
	}
	explore := &core.Explore{Name: root, ViewName: root}
	if ds.ExploresAsExtensions {
		explore.Extension = core.ExtensionRequired
	}
	for _, node := range sorted {
		join := node.Data
		join.RequiredJoins = slices.Clone(s.joins.GetParents(node.ID))
		explore.Joins = append(explore.Joins, join)
	}
	return s.views, explore, nil
}

type splitter struct {
	root  string
	views []core.View
	joins *dag.Graph[core.Join]
	seen  map[string]bool
}

// walk adds dims to the view at index vi. depth is the boundary nesting
// depth of that view, 0 for the root.
func (s *splitter) walk(vi int, dims []core.Dimension, depth int) error {
	for _, d := range dims {
		children := d.Fields
		dim := present(d)
		s.views[vi].Dimensions = append(s.views[vi].Dimensions, dim)
		s.views[vi].Measures = append(s.views[vi].Measures, dim.Measures...)

		if !d.Repeated {
			continue
		}

		parent := s.views[vi].Name
		name := parent + "__" + dim.Name
		if s.seen[name] {
			return &core.SchemaError{Table: s.root, Path: d.Path, Msg: fmt.Sprintf("view name %s is generated twice", name)}
		}
		s.seen[name] = true

		s.views = append(s.views, core.View{
			Name:        name,
			Description: d.Description,
			Parent:      parent,
			Depth:       depth + 1,
		})
		s.addJoin(parent, name, d.Name, depth+1)

		if err := s.walk(len(s.views)-1, children, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// addJoin unnests field, the boundary's column path relative to the parent
// view, from the parent view's table reference.
func (s *splitter) addJoin(parent, name, field string, depth int) {
	join := core.Join{
		Name:         name,
		ViewLabel:    starctx.Title(strings.ReplaceAll(name, "__", ".")),
		SQL:          fmt.Sprintf("LEFT JOIN UNNEST(${%s}.%s) AS %s", parent, field, name),
		Type:         core.JoinLeftOuter,
		Relationship: core.RelationOneToMany,
		Depth:        depth,
	}
	s.joins.AddNode(name, join)
	if parent != s.root {
		// the parent join was added when its boundary was visited, and it
		// becomes this join's required join
		_ = s.joins.AddEdge(parent, name)
	}
}

// present returns the flat view form of an enriched dimension: a LookML
// safe name, struct members grouped under their record path, and boundaries
// hidden in favor of their joined view.
func present(d core.Dimension) core.Dimension {
	d.Fields = nil
	d.Name = core.SafeName(d.Name)

	if parent := core.ParentPath(d.Path); parent != "" {
		if d.GroupLabel == "" {
			d.GroupLabel = starctx.Title(parent)
		}
		if d.GroupItemLabel == "" && !d.IsVariant {
			d.GroupItemLabel = starctx.Title(core.LastSegment(d.Path))
		}
	}
	if d.Repeated && d.Hidden == nil {
		hidden := true
		d.Hidden = &hidden
	}
	return d
}
