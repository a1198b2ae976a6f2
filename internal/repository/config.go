package repository

import "fmt"

// GroupMinMembers is the smallest chat that is drawn as a group node.
const GroupMinMembers = 3

// Limits bounds every relationship query issued while loading the graph.
type Limits struct {
	RequestRows     int `yaml:"request_rows"`     // connection_requests rows per role
	Participations  int `yaml:"participations"`   // chats the user belongs to
	GroupChats      int `yaml:"group_chats"`      // qualifying group chats
	ParticipantRows int `yaml:"participant_rows"` // member rows across all groups
	ProfileBatchCap int `yaml:"profile_batch_cap"`
}

// DefaultLimits returns the production query limits.
func DefaultLimits() Limits {
	return Limits{
		RequestRows:     250,
		Participations:  100,
		GroupChats:      50,
		ParticipantRows: 500,
		ProfileBatchCap: 200,
	}
}

// Validate checks that every limit is positive.
func (l Limits) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"request_rows", l.RequestRows},
		{"participations", l.Participations},
		{"group_chats", l.GroupChats},
		{"participant_rows", l.ParticipantRows},
		{"profile_batch_cap", l.ProfileBatchCap},
	}
	for _, c := range checks {
		if c.value < 1 {
			return fmt.Errorf("%s must be at least 1", c.name)
		}
	}
	return nil
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.RequestRows == 0 {
		l.RequestRows = d.RequestRows
	}
	if l.Participations == 0 {
		l.Participations = d.Participations
	}
	if l.GroupChats == 0 {
		l.GroupChats = d.GroupChats
	}
	if l.ParticipantRows == 0 {
		l.ParticipantRows = d.ParticipantRows
	}
	if l.ProfileBatchCap == 0 {
		l.ProfileBatchCap = d.ProfileBatchCap
	}
	return l
}
