package theme

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const configYAML = `bankStart: -1
playerStart: 1500
pollTimeout: 30
houseCount: 32
hotelCount: 12
mortgageRate: 0.5
interestRate: 0.1
buildingRate: 0.5
playerTokens:
  - top-hat
  - battleship
`

const propertiesYAML = `- name: Baltic Avenue
  group: brown
  price: 60
  cost: 50
  rent: [4, 20, 60, 180, 320, 450]
- name: Reading Railroad
  group: railroad
  price: 200
  rent: [25, 50, 100, 200]
`

const messagesYAML = `error:
  player:
    balance: "{player} does not have enough money"
notice:
  property:
    bought: "{player} purchased {property}"
poll:
  player-join: "{player} would like to join"
`

func writeTheme(t *testing.T, dir, name string, parts map[string]string) {
	t.Helper()
	themeDir := filepath.Join(dir, name)
	if err := os.MkdirAll(themeDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for part, content := range parts {
		path := filepath.Join(themeDir, part+".yml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

func TestFileLoaderConfig(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "classic", map[string]string{"config": configYAML})

	loader := NewFileLoader(dir)
	cfg, err := loader.Config("classic")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BankStart != BankInfinite {
		t.Fatalf("bankStart = %d, want infinite sentinel", cfg.BankStart)
	}
	if cfg.PlayerStart != 1500 || cfg.PollTimeoutSeconds != 30 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.MortgageRate != 0.5 || cfg.InterestRate != 0.1 {
		t.Fatalf("unexpected rates %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.PlayerTokens, []string{"top-hat", "battleship"}) {
		t.Fatalf("unexpected tokens %v", cfg.PlayerTokens)
	}
}

func TestFileLoaderProperties(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "classic", map[string]string{"properties": propertiesYAML})

	loader := NewFileLoader(dir)
	props, err := loader.Properties("classic")
	if err != nil {
		t.Fatalf("load properties: %v", err)
	}
	if len(props) != 2 {
		t.Fatalf("got %d properties", len(props))
	}
	baltic := props[0]
	if baltic.Name != "Baltic Avenue" || baltic.Group != "brown" || baltic.Price != 60 {
		t.Fatalf("unexpected property %+v", baltic)
	}
	if !reflect.DeepEqual(baltic.Rent, []int{4, 20, 60, 180, 320, 450}) {
		t.Fatalf("unexpected rent %v", baltic.Rent)
	}
	if props[1].Cost != 0 {
		t.Fatalf("railroad cost should default to zero, got %d", props[1].Cost)
	}
}

func TestFileLoaderMessagesFlatten(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "classic", map[string]string{"messages": messagesYAML})

	loader := NewFileLoader(dir)
	msgs, err := loader.Messages("classic")
	if err != nil {
		t.Fatalf("load messages: %v", err)
	}
	want := Messages{
		"error.player.balance":   "{player} does not have enough money",
		"notice.property.bought": "{player} purchased {property}",
		"poll.player-join":       "{player} would like to join",
	}
	if !reflect.DeepEqual(msgs, want) {
		t.Fatalf("flattened messages = %v, want %v", msgs, want)
	}
}

func TestFileLoaderCachesParsedThemes(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "classic", map[string]string{"config": configYAML})

	loader := NewFileLoader(dir)
	if _, err := loader.Config("classic"); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// A later change on disk must not leak into the cached result.
	writeTheme(t, dir, "classic", map[string]string{"config": "playerStart: 9999\n"})
	cfg, err := loader.Config("classic")
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if cfg.PlayerStart != 1500 {
		t.Fatalf("cache miss: playerStart = %d", cfg.PlayerStart)
	}
}

func TestFileLoaderUnknownTheme(t *testing.T) {
	loader := NewFileLoader(t.TempDir())
	if _, err := loader.Config("missing"); err == nil {
		t.Fatal("expected error for missing theme")
	}
}

func TestMergeOverrides(t *testing.T) {
	base := Config{
		BankStart:          15000,
		PlayerStart:        1500,
		PollTimeoutSeconds: 30,
		MortgageRate:       0.5,
	}
	start := 2000
	rate := 0.25
	merged := base.Merge(Overrides{PlayerStart: &start, MortgageRate: &rate})
	if merged.PlayerStart != 2000 || merged.MortgageRate != 0.25 {
		t.Fatalf("overrides not applied: %+v", merged)
	}
	if merged.BankStart != 15000 || merged.PollTimeoutSeconds != 30 {
		t.Fatalf("untouched fields changed: %+v", merged)
	}
}
