package types

// Migration is a single versioned schema change. SQL holds both directions,
// the down part first and the up part after the separator line.
type Migration struct {
	ID     string
	SQL    string
	Prefix string
}
