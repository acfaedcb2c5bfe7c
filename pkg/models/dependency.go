package models

import "time"

// Dependency is a dependee -> dependent edge: the dependee task must be
// completed before the dependent task can start.
type Dependency struct {
	DependeeUID  int64     `json:"dependee_uid"`
	DependentUID int64     `json:"dependent_uid"`
	CreatedAt    time.Time `json:"created_at"`
}
