package redis

const (
	// KeyPrefixService is the prefix for service record keys.
	KeyPrefixService = "seamark:service:"
	// KeyAllServices is the set of all registered service ids.
	KeyAllServices = "seamark:services:all"
	// KeyPrefixHarvest is the prefix for latest-harvest-result keys.
	KeyPrefixHarvest = "seamark:harvest:"
	// KeyPrefixHarvestLog is the prefix for harvest message log lists.
	KeyPrefixHarvestLog = "seamark:harvestlog:"
	// KeyPrefixMetamap is the prefix for metamap keys.
	KeyPrefixMetamap = "seamark:metamap:"
	// KeyPrefixDatasets is the prefix for per-service dataset hashes
	// (field = dataset uid).
	KeyPrefixDatasets = "seamark:datasets:"
	// KeyPrefixPings is the prefix for ping series lists (newest at
	// the head).
	KeyPrefixPings = "seamark:pings:"
)

// ServiceKey returns the redis key for a service record.
func ServiceKey(id string) string { return KeyPrefixService + id }

// HarvestKey returns the redis key for the latest harvest result.
func HarvestKey(id string) string { return KeyPrefixHarvest + id }

// HarvestLogKey returns the redis key for the harvest message log.
func HarvestLogKey(id string) string { return KeyPrefixHarvestLog + id }

// MetamapKey returns the redis key for the metamap.
func MetamapKey(id string) string { return KeyPrefixMetamap + id }

// DatasetsKey returns the redis key for the dataset hash.
func DatasetsKey(id string) string { return KeyPrefixDatasets + id }

// PingsKey returns the redis key for the ping series.
func PingsKey(id string) string { return KeyPrefixPings + id }
