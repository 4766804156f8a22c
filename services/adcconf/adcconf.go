// Package adcconf loads host-side settings for an ADS1x15: defaults,
// then ADS1015_* environment variables, then command-line flags, then an
// optional JSON file named by config.file.
package adcconf

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"

	"ads1015-go/drivers/ads1015"
	"ads1015-go/errcode"
	"ads1015-go/hal"
	"ads1015-go/x/mathx"
)

// Defaults returns the built-in settings.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"variant":     "ads1015",
		"bus":         1,
		"address":     ads1015.AddressDefault,
		"sim":         false,
		"gpiochip":    "gpiochip0",
		"autosuspend": ads1015.SleepDelay.String(),
		"queue":       64,
		"mode":        "raw",
		"channel":     "AIN0",
		"count":       16,
		"timeout":     "2s",
		"ready": map[string]interface{}{
			"line": -1,
			"edge": "rising",
		},
		"log": map[string]interface{}{
			"level": "info",
		},
	}
}

// Load builds the layered configuration from args (without the program
// name).
func Load(args []string) *config.Config {
	def := dict.New(dict.WithMap(Defaults()))
	flags := []pflag.Flag{
		{Short: 'c', Name: "config-file"},
		{Short: 's', Name: "sim"},
		{Short: 'm', Name: "mode"},
		{Short: 'n', Name: "count"},
	}
	cfg := config.New(
		pflag.New(pflag.WithFlags(flags), pflag.WithCommandLine(args)),
		env.New(env.WithEnvPrefix("ADS1015_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "ads1015.json", json.NewDecoder()))
	return cfg
}

// maxCount bounds the records taken in one stream run.
const maxCount = 1 << 20

// Settings is the decoded configuration.
type Settings struct {
	Variant          ads1015.Variant
	Bus              int
	Address          uint8
	Sim              bool
	GPIOChip         string
	ReadyLine        int // -1 when no ready pin is wired
	ReadyEdge        hal.Edge
	AutosuspendDelay time.Duration
	QueueSize        int
	Mode             string
	Channel          ads1015.Channel
	Count            int
	Timeout          time.Duration
	LogLevel         slog.Level

	// Tree is the "channels" array, nil when the array is absent or
	// empty.
	Tree ads1015.TreeNode
}

func invalid(key, msg string) error {
	return &errcode.E{C: errcode.InvalidArgument, Op: "config " + key, Msg: msg}
}

// Decode reads Settings out of cfg.
func Decode(cfg *config.Config) (Settings, error) {
	var s Settings
	get := func(key string) (config.Value, error) {
		v, err := cfg.Get(key)
		if err != nil {
			return v, invalid(key, err.Error())
		}
		return v, nil
	}

	v, err := get("variant")
	if err != nil {
		return s, err
	}
	var ok bool
	if s.Variant, ok = ads1015.ParseVariant(v.String()); !ok {
		return s, invalid("variant", "unknown "+strconv.Quote(v.String()))
	}

	if v, err = get("bus"); err != nil {
		return s, err
	}
	s.Bus = int(v.Int())

	if v, err = get("address"); err != nil {
		return s, err
	}
	addr := int(v.Int())
	if !mathx.Between(addr, ads1015.AddressGND, ads1015.AddressSCL) {
		return s, invalid("address", fmt.Sprintf("%#x outside 0x48-0x4b", addr))
	}
	s.Address = uint8(addr)

	if v, err = get("sim"); err != nil {
		return s, err
	}
	s.Sim = v.Bool()

	if v, err = get("gpiochip"); err != nil {
		return s, err
	}
	s.GPIOChip = v.String()

	if v, err = get("ready.line"); err != nil {
		return s, err
	}
	s.ReadyLine = int(v.Int())

	if v, err = get("ready.edge"); err != nil {
		return s, err
	}
	s.ReadyEdge = hal.ParseEdge(strings.ToLower(v.String()))

	if v, err = get("autosuspend"); err != nil {
		return s, err
	}
	s.AutosuspendDelay = v.Duration()

	if v, err = get("queue"); err != nil {
		return s, err
	}
	s.QueueSize = int(v.Int())

	if v, err = get("mode"); err != nil {
		return s, err
	}
	switch s.Mode = v.String(); s.Mode {
	case "raw", "stream":
	default:
		return s, invalid("mode", "want raw or stream, got "+strconv.Quote(s.Mode))
	}

	if v, err = get("channel"); err != nil {
		return s, err
	}
	if s.Channel, ok = ads1015.ParseChannel(v.String()); !ok || !s.Channel.Valid() {
		return s, invalid("channel", "unknown "+strconv.Quote(v.String()))
	}

	if v, err = get("count"); err != nil {
		return s, err
	}
	s.Count = mathx.Clamp(int(v.Int()), 1, maxCount)

	if v, err = get("timeout"); err != nil {
		return s, err
	}
	s.Timeout = v.Duration()

	if v, err = get("log.level"); err != nil {
		return s, err
	}
	if err := s.LogLevel.UnmarshalText([]byte(v.String())); err != nil {
		return s, invalid("log.level", err.Error())
	}

	if n := arrayLen(cfg, "channels"); n > 0 {
		s.Tree = &treeNode{cfg: cfg, name: "channels", n: n}
	}
	return s, nil
}

// arrayLen returns the length of the array at key, 0 when absent.
func arrayLen(cfg *config.Config, key string) int {
	v, err := cfg.Get(key + "[]")
	if err != nil {
		return 0
	}
	return int(v.Int())
}

// treeNode exposes a config subtree as an ads1015.TreeNode. The root is
// the "channels" array; its elements are the children.
type treeNode struct {
	cfg  *config.Config
	name string
	n    int // children, root only
}

func (t *treeNode) Name() string { return t.name }

func (t *treeNode) Children() []ads1015.TreeNode {
	kids := make([]ads1015.TreeNode, t.n)
	for i := range kids {
		kids[i] = &treeNode{cfg: t.cfg, name: t.name + "[" + strconv.Itoa(i) + "]"}
	}
	return kids
}

func (t *treeNode) Property(name string) (uint32, bool) {
	v, err := t.cfg.Get(t.name + "." + name)
	if err != nil {
		return 0, false
	}
	n := int64(v.Int())
	if n < 0 || n > 0xFFFFFFFF {
		return 0, false
	}
	return uint32(n), true
}
