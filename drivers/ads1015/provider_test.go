package ads1015

import (
	"errors"
	"log/slog"
	"testing"

	"ads1015-go/errcode"
)

type node struct {
	name  string
	props map[string]uint32
	kids  []TreeNode
}

func (n *node) Name() string         { return n.name }
func (n *node) Children() []TreeNode { return n.kids }
func (n *node) Property(p string) (uint32, bool) {
	v, ok := n.props[p]
	return v, ok
}

func child(name string, props map[string]uint32) *node { return &node{name: name, props: props} }

func TestTreeProvider(t *testing.T) {
	root := &node{name: "adc", kids: []TreeNode{
		child("channel@4", map[string]uint32{"reg": 4, "gain": 1, "datarate": 6}),
		child("channel@5", map[string]uint32{"reg": 5, "gain": 4}),
		child("noreg", map[string]uint32{"gain": 0}),
		child("channel@9", map[string]uint32{"reg": 9, "gain": 0}),
	}}
	tbl, err := TreeProvider{Root: root, Logger: slog.New(slog.DiscardHandler)}.ChannelConfigs()
	if err != nil {
		t.Fatal(err)
	}
	for i, cc := range tbl {
		want := DefaultChannelConfig
		switch Channel(i) {
		case AIN0:
			want = ChannelConfig{Gain: 1, Rate: 6}
		case AIN1:
			want = ChannelConfig{Gain: 4, Rate: DefaultRate}
		}
		if cc != want {
			t.Fatalf("channel %d: %+v want %+v", i, cc, want)
		}
	}
}

func TestTreeProviderRejects(t *testing.T) {
	for _, props := range []map[string]uint32{
		{"reg": 0, "gain": 7},
		{"reg": 0, "datarate": 8},
	} {
		root := &node{kids: []TreeNode{child("c", props)}}
		_, err := TreeProvider{Root: root, Logger: slog.New(slog.DiscardHandler)}.ChannelConfigs()
		if !errors.Is(err, errcode.InvalidArgument) {
			t.Fatalf("%v: err=%v", props, err)
		}
	}
}

func TestTreeProviderEmpty(t *testing.T) {
	if _, err := (TreeProvider{}).ChannelConfigs(); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("nil root: %v", err)
	}
	if _, err := (TreeProvider{Root: &node{}}).ChannelConfigs(); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("no children: %v", err)
	}
}

func TestResolvePreference(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	plat := &StaticTable{}
	for i := range plat {
		plat[i] = ChannelConfig{Gain: 5, Rate: 1}
	}
	tree := TreeProvider{Root: &node{kids: []TreeNode{child("c", map[string]uint32{"reg": 0, "gain": 3})}}, Logger: log}

	if got := resolveChannels(log, plat, tree, Defaults{}); got[AIN0_AIN1] != plat[0] {
		t.Fatalf("platform not preferred: %+v", got[0])
	}
	if got := resolveChannels(log, (*StaticTable)(nil), tree, Defaults{}); got[AIN0_AIN1].Gain != 3 {
		t.Fatalf("tree not used: %+v", got[0])
	}
	if got := resolveChannels(log, TreeProvider{Root: &node{}}, Defaults{}); got != defaultTable() {
		t.Fatalf("defaults not used: %+v", got)
	}

	bad := TreeProvider{Root: &node{kids: []TreeNode{child("c", map[string]uint32{"reg": 1, "gain": 9})}}, Logger: log}
	if got := resolveChannels(log, bad, Defaults{}); got != defaultTable() {
		t.Fatalf("bad tree should fall back to defaults: %+v", got)
	}
}

func TestNewUsesPlatformTable(t *testing.T) {
	plat := &StaticTable{}
	plat[AIN2] = ChannelConfig{Gain: 0, Rate: 7}
	r := newRig(t, func(c *Config) {
		c.Platform = plat
		c.Tree = &node{kids: []TreeNode{child("c", map[string]uint32{"reg": 6, "gain": 3})}}
	})
	if cc, _ := r.dev.ChannelConfig(AIN2); cc != plat[AIN2] {
		t.Fatalf("got %+v", cc)
	}
}
