package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port      string          `mapstructure:"port"`
	PprofAddr string          `mapstructure:"pprof_addr"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Room      RoomConfig      `mapstructure:"room"`
	WS        WebsocketConfig `mapstructure:"ws"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// JWTConfig definition token verification setting
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// RoomConfig definition default room and payload limits
type RoomConfig struct {
	DefaultID        string `mapstructure:"default_id"`
	DefaultName      string `mapstructure:"default_name"`
	MaxMessageLength int    `mapstructure:"max_message_length"`
	MaxRoomIDLength  int    `mapstructure:"max_room_id_length"`
}

// WebsocketConfig definition per connection setting
type WebsocketConfig struct {
	SendBuffer   int           `mapstructure:"send_buffer"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// MongoConfig definition message archive setting
type MongoConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	DatabaseConfig `mapstructure:",squash"`
}

// RedisConfig definition event mirror setting
type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Addr          string `mapstructure:"addr"`
	RedisDB       int    `mapstructure:"redis_db"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// chatDefaults is applied before the YAML file is read.
var chatDefaults = map[string]interface{}{
	"port":                    "5000",
	"jwt.issuer":              "member_service",
	"room.default_id":         "global",
	"room.default_name":       "Global Chat",
	"room.max_message_length": 2000,
	"room.max_room_id_length": 128,
	"ws.send_buffer":          256,
	"ws.ping_interval":        "30s",
	"mongo.database":          "chat",
	"mongo.retry_count":       3,
	"mongo.retry_interval":    2,
	"redis.addr":              "localhost:6379",
	"redis.channel_prefix":    "chat",
	"redis.retry_count":       3,
	"redis.retry_interval":    2,
}
