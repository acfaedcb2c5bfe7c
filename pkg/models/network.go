package models

// Network is the full task graph: every task plus the hierarchy and
// dependency edges between them.
type Network struct {
	Tasks        []*Task       `json:"tasks"`
	Hierarchies  []*Hierarchy  `json:"hierarchies"`
	Dependencies []*Dependency `json:"dependencies"`
}
