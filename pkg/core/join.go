package core

// Join is one hop on the path from the query's base view to a field's view.
type Join struct {
	View         string
	Relationship Relationship
}

// JoinContext describes how the query reaches a field. It is created per
// query and discarded after compilation.
type JoinContext struct {
	BaseView string // view the query is rooted at; empty when unknown
	Joins    []Join
}

// NeedsSymmetricAggregate reports whether aggregating a field owned by view
// may see duplicated rows: either the query is rooted elsewhere, or a join
// on the path fans out.
func (jc JoinContext) NeedsSymmetricAggregate(view string) bool {
	if jc.BaseView != "" && jc.BaseView != view {
		return true
	}
	for _, j := range jc.Joins {
		if j.Relationship.FansOut() {
			return true
		}
	}
	return false
}
