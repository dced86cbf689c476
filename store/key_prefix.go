package store

// Declare database key prefix for objects
const (
	KeyStackState = "stack_state:levels"

	PrefixTxLog     = "tx_log:"
	KeyTxLogNextSeq = "tx_log_meta:next"
)
