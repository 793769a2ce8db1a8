package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// BankInfinite marks a bank that never runs out of money.
const BankInfinite = -1

// Config holds the numeric settings a theme ships as defaults. Per-game
// overrides are merged on top at game creation and the result is frozen
// into the game document.
type Config struct {
	BankStart          int      `yaml:"bankStart" json:"bankStart"`
	PlayerStart        int      `yaml:"playerStart" json:"playerStart"`
	PollTimeoutSeconds int      `yaml:"pollTimeout" json:"pollTimeout"`
	HouseCount         int      `yaml:"houseCount" json:"houseCount"`
	HotelCount         int      `yaml:"hotelCount" json:"hotelCount"`
	MortgageRate       float64  `yaml:"mortgageRate" json:"mortgageRate"`
	InterestRate       float64  `yaml:"interestRate" json:"interestRate"`
	BuildingRate       float64  `yaml:"buildingRate" json:"buildingRate"`
	PlayerTokens       []string `yaml:"playerTokens" json:"playerTokens"`
}

// Overrides carries per-game settings; nil fields keep the theme default.
type Overrides struct {
	BankStart          *int     `json:"bankStart,omitempty"`
	PlayerStart        *int     `json:"playerStart,omitempty"`
	PollTimeoutSeconds *int     `json:"pollTimeout,omitempty"`
	HouseCount         *int     `json:"houseCount,omitempty"`
	HotelCount         *int     `json:"hotelCount,omitempty"`
	MortgageRate       *float64 `json:"mortgageRate,omitempty"`
	InterestRate       *float64 `json:"interestRate,omitempty"`
	BuildingRate       *float64 `json:"buildingRate,omitempty"`
}

// Merge returns the config with every non-nil override applied.
func (c Config) Merge(o Overrides) Config {
	if o.BankStart != nil {
		c.BankStart = *o.BankStart
	}
	if o.PlayerStart != nil {
		c.PlayerStart = *o.PlayerStart
	}
	if o.PollTimeoutSeconds != nil {
		c.PollTimeoutSeconds = *o.PollTimeoutSeconds
	}
	if o.HouseCount != nil {
		c.HouseCount = *o.HouseCount
	}
	if o.HotelCount != nil {
		c.HotelCount = *o.HotelCount
	}
	if o.MortgageRate != nil {
		c.MortgageRate = *o.MortgageRate
	}
	if o.InterestRate != nil {
		c.InterestRate = *o.InterestRate
	}
	if o.BuildingRate != nil {
		c.BuildingRate = *o.BuildingRate
	}
	return c
}

// Property is one entry of a theme's static property list.
type Property struct {
	Name  string `yaml:"name" json:"name"`
	Group string `yaml:"group" json:"group"`
	Price int    `yaml:"price" json:"price"`
	Cost  int    `yaml:"cost" json:"cost"`
	Rent  []int  `yaml:"rent" json:"rent"`
}

// Messages maps dotted template keys ("error.player.balance",
// "notice.property.bought", "poll.player-join") to template text.
type Messages map[string]string

// Loader resolves the static content bundles of a theme.
type Loader interface {
	Config(name string) (Config, error)
	Properties(name string) ([]Property, error)
	Messages(name string) (Messages, error)
}

// FileLoader reads theme bundles from <dir>/<name>/<part>.yml and caches
// parsed results per theme. The cache belongs to the loader instance; there
// is no package-level state.
type FileLoader struct {
	dir        string
	mu         sync.Mutex
	configs    map[string]Config
	properties map[string][]Property
	messages   map[string]Messages
}

func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{
		dir:        dir,
		configs:    make(map[string]Config),
		properties: make(map[string][]Property),
		messages:   make(map[string]Messages),
	}
}

func (l *FileLoader) Config(name string) (Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cfg, ok := l.configs[name]; ok {
		return cfg, nil
	}
	var cfg Config
	if err := l.readPart(name, "config", &cfg); err != nil {
		return Config{}, err
	}
	l.configs[name] = cfg
	return cfg, nil
}

func (l *FileLoader) Properties(name string) ([]Property, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if props, ok := l.properties[name]; ok {
		return props, nil
	}
	var props []Property
	if err := l.readPart(name, "properties", &props); err != nil {
		return nil, err
	}
	l.properties[name] = props
	return props, nil
}

func (l *FileLoader) Messages(name string) (Messages, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if msgs, ok := l.messages[name]; ok {
		return msgs, nil
	}
	var raw map[string]any
	if err := l.readPart(name, "messages", &raw); err != nil {
		return nil, err
	}
	msgs := make(Messages)
	flattenMessages("", raw, msgs)
	l.messages[name] = msgs
	return msgs, nil
}

func (l *FileLoader) readPart(name, part string, dest any) error {
	path := filepath.Join(l.dir, name, part+".yml")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("theme %q: %w", name, err)
	}
	if err := yaml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("theme %q: parse %s: %w", name, part, err)
	}
	return nil
}

func flattenMessages(prefix string, value any, out Messages) {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flattenMessages(next, child, out)
		}
	case string:
		if prefix != "" {
			out[prefix] = typed
		}
	}
}
