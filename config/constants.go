package config

// Protocol constants that do not vary between presets.
const (
	GENESIS_SLOT  = 0
	GENESIS_EPOCH = 0

	// Generalized indices into the Altair BeaconState tree.
	CURRENT_SYNC_COMMITTEE_INDEX = 54
	NEXT_SYNC_COMMITTEE_INDEX    = 55
	FINALIZED_ROOT_INDEX         = 105

	// floorlog2 of the indices above.
	CURRENT_SYNC_COMMITTEE_BRANCH_LENGTH = 5
	NEXT_SYNC_COMMITTEE_BRANCH_LENGTH    = 5
	FINALITY_BRANCH_LENGTH               = 6

	// Upper bound of the sync committee bitvector carried by SyncAggregate.
	MAX_SYNC_COMMITTEE_SIZE = 512

	// Beacon API limit for a single light_client/updates request.
	MAX_REQUEST_LIGHT_CLIENT_UPDATES = 128

	BLS_PUBKEY_LENGTH    = 48
	BLS_SIGNATURE_LENGTH = 96
)
