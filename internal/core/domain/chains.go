package domain

type ChainID string
type ChainName string

const (
	// Chain IDs
	ChainIDEthereum ChainID = "1"
	ChainIDBase     ChainID = "8453"
	ChainIDPolygon  ChainID = "137"

	// Chain Names (Internal Codes)
	ChainNameEthereum ChainName = "ETHEREUM_MAINNET"
	ChainNameBase     ChainName = "BASE_MAINNET"
	ChainNamePolygon  ChainName = "POLYGON_MAINNET"
)

// ChainIDToName maps ChainID to its human-readable InternalCode/Name.
var ChainIDToName = map[ChainID]ChainName{
	ChainIDEthereum: ChainNameEthereum,
	ChainIDBase:     ChainNameBase,
	ChainIDPolygon:  ChainNamePolygon,
}

// Name returns the internal code for a chain, falling back to the raw ID.
func (id ChainID) Name() ChainName {
	if name, ok := ChainIDToName[id]; ok {
		return name
	}
	return ChainName(id)
}
