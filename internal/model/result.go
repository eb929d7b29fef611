package model

// PermuteResult accumulates everything the checker needs to know about one
// generated crash state
type PermuteResult struct {
	// CrashState is the reordered write sequence to replay
	CrashState []DiskWriteData
	// LastCheckpoint is the checkpoint id in effect at the crash point
	LastCheckpoint int
}
