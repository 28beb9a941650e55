package processing

// State is a step of a sync run. A run moves forward through the states in
// declaration order and never revisits one; Failed is reachable from any.
type State int

const (
	StateInit State = iota
	StateAuthResolved
	StateSheetResolved
	StateColumnResolved
	StateRowsRead
	StateRanksFetched
	StateCommitted
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInit:           "Init",
	StateAuthResolved:   "AuthResolved",
	StateSheetResolved:  "SheetResolved",
	StateColumnResolved: "ColumnResolved",
	StateRowsRead:       "RowsRead",
	StateRanksFetched:   "RanksFetched",
	StateCommitted:      "Committed",
	StateDone:           "Done",
	StateFailed:         "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}
