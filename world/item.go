package world

// Item places one instance of an item type at a cell.
type Item struct {
	Type         int32
	CellPosition Position
}

// RemovedItem records a deleted item for afterglow scent contribution and
// for reporting to clients (§3, §4.3).
type RemovedItem struct {
	Position   Position
	Type       int32
	DeletedTick uint64
}
