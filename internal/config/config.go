package config

import "time"

// Config is the root FakeGPT configuration.
type Config struct {
	Gateway      GatewayConfig      `json:"gateway"`
	Events       EventsConfig       `json:"events"`
	Streaming    StreamingConfig    `json:"streaming"`
	Network      NetworkConfig      `json:"network"`
	Cache        CacheConfig        `json:"cache"`
	Conversation ConversationConfig `json:"conversation"`
	Content      ContentConfig      `json:"content"`
}

// GatewayConfig holds gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int    `json:"buffer_size"`
	LogLevel   string `json:"log_level"`
}

// StreamingConfig tunes the pacing of streamed bot text.
type StreamingConfig struct {
	Slow           Duration `json:"slow"`
	Normal         Duration `json:"normal"`
	Fast           Duration `json:"fast"`
	SentencePause  float64  `json:"sentence_pause"`
	ClausePause    float64  `json:"clause_pause"`
	LongWordFactor float64  `json:"long_word_factor"`
	LongWordLength int      `json:"long_word_length"`
	Jitter         Duration `json:"jitter"`
	CodeLineFactor float64  `json:"code_line_factor"`
	FastThreshold  int      `json:"fast_threshold"` // runes; longer content streams at the fast speed
}

// NetworkConfig tunes the network simulator and the retry policy around it.
type NetworkConfig struct {
	BaseDelay      Duration        `json:"base_delay"`
	SlowChance     float64         `json:"slow_chance"`
	FailChance     float64         `json:"fail_chance"`
	SlowDelay      DelayRange      `json:"slow_delay"`
	Ambient        bool            `json:"ambient"` // roll random slow/fail outcomes while demo mode is off
	RetryAttempts  int             `json:"retry_attempts"`
	RetryBaseDelay Duration        `json:"retry_base_delay"`
	RetryMaxDelay  Duration        `json:"retry_max_delay"`
	RateLimit      RateLimitConfig `json:"rate_limit"`
}

// DelayRange is an inclusive-exclusive [Min, Max) duration range.
type DelayRange struct {
	Min Duration `json:"min"`
	Max Duration `json:"max"`
}

// RateLimitConfig bounds simulated requests per sliding window. Zero requests disables it.
type RateLimitConfig struct {
	Requests int      `json:"requests"`
	Window   Duration `json:"window"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Duration     Duration `json:"duration"`
	MaxResponses int      `json:"max_responses"`
}

// ConversationConfig holds the pauses the bot takes before answering.
type ConversationConfig struct {
	GreetingDelay Duration `json:"greeting_delay"`
	ResponseDelay Duration `json:"response_delay"`
}

// ContentConfig lists extra topic catalogs merged over the embedded one.
type ContentConfig struct {
	Overlays []string `json:"overlays,omitempty"` // doublestar glob patterns
}

// Default returns a config populated with every default value.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{Host: "127.0.0.1", Port: 18520},
		Events:  EventsConfig{BufferSize: 1024, LogLevel: "info"},
		Streaming: StreamingConfig{
			Slow:           Duration(80 * time.Millisecond),
			Normal:         Duration(40 * time.Millisecond),
			Fast:           Duration(20 * time.Millisecond),
			SentencePause:  4,
			ClausePause:    2,
			LongWordFactor: 1.2,
			LongWordLength: 8,
			Jitter:         Duration(10 * time.Millisecond),
			CodeLineFactor: 0.5,
			FastThreshold:  100,
		},
		Network: NetworkConfig{
			BaseDelay:      Duration(100 * time.Millisecond),
			SlowChance:     0.4,
			FailChance:     0.2,
			SlowDelay:      DelayRange{Min: Duration(time.Second), Max: Duration(3 * time.Second)},
			Ambient:        true,
			RetryAttempts:  3,
			RetryBaseDelay: Duration(time.Second),
			RetryMaxDelay:  Duration(30 * time.Second),
			RateLimit:      RateLimitConfig{Window: Duration(time.Minute)},
		},
		Cache: CacheConfig{Duration: Duration(5 * time.Minute), MaxResponses: 20},
		Conversation: ConversationConfig{
			GreetingDelay: Duration(500 * time.Millisecond),
			ResponseDelay: Duration(300 * time.Millisecond),
		},
	}
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
