package kv

var (
	checkpointBucket = []byte("checkpoint")

	finalizedCheckpointKey = []byte("finalized-checkpoint")
)
