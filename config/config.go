package config

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_BADGER StorageType = "badger"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig       RedisStorageConfig
	BadgerConfig      BadgerStorageConfig
	HttpPort          int
	StorageType       StorageType
	MaxNodeVisits     int
	MaxInputAttempts  int
	DelayPollInterval int
	DelayPartitions   int
	SenderWebhookUrl  string
	SendTimeoutSecs   int
	AnalyticsLogFile  string
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}

type BadgerStorageConfig struct {
	Path      string
	Namespace string
}
