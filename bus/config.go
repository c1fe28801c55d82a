package bus

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config is the operator-facing broker surface. Enabled=false turns the
// whole dissemination engine into a no-op.
type Config struct {
	BootstrapServers  string        `env:"KAFKA_BOOTSTRAP_SERVERS,default=localhost:9092"`
	TopicsPrefix      string        `env:"KAFKA_TOPICS_PREFIX,default=chat"`
	ConsumerGroupID   string        `env:"KAFKA_CONSUMER_GROUP_ID,default=chat-relay"`
	AutoOffsetReset   string        `env:"KAFKA_AUTO_OFFSET_RESET,default=earliest"`
	EnableAutoCommit  bool          `env:"KAFKA_ENABLE_AUTO_COMMIT,default=true"`
	MaxPollRecords    int           `env:"KAFKA_MAX_POLL_RECORDS,default=500"`
	SessionTimeout    time.Duration `env:"KAFKA_SESSION_TIMEOUT,default=30s"`
	HeartbeatInterval time.Duration `env:"KAFKA_HEARTBEAT_INTERVAL,default=3s"`
	Enabled           bool          `env:"KAFKA_ENABLED,default=true"`
}

func (c Config) Brokers() []string {
	return strings.Split(c.BootstrapServers, ",")
}

// TopicName derives the topic for an event kind:
// {prefix}.{kind with '.' replaced by '_'}.
func (c Config) TopicName(kind string) string {
	return c.TopicsPrefix + "." + strings.ReplaceAll(kind, ".", "_")
}

func (c Config) startOffset() int64 {
	if c.AutoOffsetReset == "latest" {
		return kafka.LastOffset
	}
	return kafka.FirstOffset
}
