package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type TaggerCfg struct {
	Enabled    bool
	Brokers    []string
	InTopic    string
	OutTopic   string
	GroupID    string
	QueueSize  int
	DedupeSize int
}

type Config struct {
	Addr           string
	LogLevel       string
	MetricsEnabled bool

	RedisAddr      string
	CacheOpTimeout time.Duration

	BatchEnabled  bool
	BatchMaxItems int
	BatchWorkers  int
	BatchQueue    int
	BatchJobTTL   time.Duration
	BatchMaxBody  int64

	H3Res            int
	GeohashPrecision int

	HotHalfLife  time.Duration
	HotPrefixLen int

	Tagger TaggerCfg
}

func FromEnv() Config {
	h3Res := getint("H3_RES", 13)
	if h3Res < 0 {
		h3Res = 0
	}
	if h3Res > 15 {
		h3Res = 15
	}

	ghPrec := getint("GEOHASH_PRECISION", 9)
	if ghPrec < 1 {
		ghPrec = 1
	}
	if ghPrec > 12 {
		ghPrec = 12
	}

	prefixLen := getint("HOT_PREFIX_LEN", 3)
	if prefixLen < 1 {
		prefixLen = 1
	}
	if prefixLen > 10 {
		prefixLen = 10
	}

	return Config{
		Addr:           getenv("ADDR", ":8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		MetricsEnabled: getbool("METRICS_ENABLED", true),

		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

		BatchEnabled:  getbool("BATCH_ENABLED", true),
		BatchMaxItems: getint("BATCH_MAX_ITEMS", 10000),
		BatchWorkers:  getint("BATCH_WORKERS", 4),
		BatchQueue:    getint("BATCH_QUEUE", 64),
		BatchJobTTL:   getduration("BATCH_JOB_TTL", 24*time.Hour),
		BatchMaxBody:  int64(getint("BATCH_MAX_BODY", 4<<20)),

		H3Res:            h3Res,
		GeohashPrecision: ghPrec,

		HotHalfLife:  getduration("HOT_HALF_LIFE", 10*time.Minute),
		HotPrefixLen: prefixLen,

		Tagger: TaggerCfg{
			Enabled:    getbool("TAGGER_ENABLED", false),
			Brokers:    splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			InTopic:    getenv("KAFKA_IN_TOPIC", "location-events"),
			OutTopic:   getenv("KAFKA_OUT_TOPIC", "location-events-tagged"),
			GroupID:    getenv("KAFKA_GROUP_ID", "digipin-tagger"),
			QueueSize:  getint("TAGGER_QUEUE", 1024),
			DedupeSize: getint("TAGGER_DEDUPE_SIZE", 8192),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}
