package crb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("gc:\n  auto_compact: true\n"))
	ExpectNilError(t, err)
	Expect(t, cfg.GC.AutoCompact, "auto_compact should be read")
	ExpectEql(t, cfg.GC.InitialSlots, 10000)
	ExpectEql(t, cfg.GC.GrowthFactor, 1.8)
	ExpectEql(t, cfg.Log.Level, "info")
}

func TestParseConfigRejects(t *testing.T) {
	for _, doc := range []string{
		"gc:\n  initial_slots: -5\n",
		"gc:\n  growth_factor: 1.01\n",
		"gc:\n  free_slots_min_ratio: 1.5\n",
		"log:\n  level: verbose\n",
		"gc: [not, a, map]\n",
	} {
		_, err := ParseConfig([]byte(doc))
		ExpectErr(t, err, "config %q should be rejected", doc)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GC.InitialSlots = 20000
	cfg.Debug.CheckLiveness = true
	data, err := cfg.Marshal()
	ExpectNilError(t, err)
	Expect(t, strings.Contains(string(data), "initial_slots: 20000"), "marshalled config:\n%s", data)

	back, err := ParseConfig(data)
	ExpectNilError(t, err)
	ExpectEql(t, back, cfg)
}

func TestNewWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crb.yaml")
	ExpectNilError(t, os.WriteFile(path, []byte("gc:\n  initial_slots: 512\ndebug:\n  check_liveness: true\n"), 0o644))

	st := newState(t, WithConfigFile(path))
	ExpectEql(t, st.Config().GC.InitialSlots, 512)
	Expect(t, st.Config().Debug.CheckLiveness, "check_liveness should come from the file")
	Expect(t, st.GCStat().TotalSlots >= 512, "heap should start with the configured slots")

	_, err := New(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
	ExpectErr(t, err, "missing config file should fail New")

	_, err = New(WithConfig(Config{GC: GCConfig{GrowthFactor: 0.5}}))
	ExpectErr(t, err, "invalid config should fail New")
}

func TestStatesRegistry(t *testing.T) {
	n := States()
	st := newState(t)
	ExpectEql(t, States(), n+1)
	st.Close()
	ExpectEql(t, States(), n)
	st.Close()
}

func TestVersion(t *testing.T) {
	Expect(t, strings.Contains(Description(), Version), "description should carry the version")
}
