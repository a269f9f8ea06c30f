package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// lake relation 200 has one outer way that enters the map at the west edge
// and leaves at the north edge
const lakeXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <bounds minlat="0" minlon="0" maxlat="1" maxlon="1"/>
  <node id="1" lat="0.5" lon="0.001"/>
  <node id="2" lat="0.6" lon="0.3"/>
  <node id="3" lat="0.999" lon="0.5"/>
  <node id="4" lat="0.2" lon="0.2"/>
  <node id="5" lat="0.2" lon="0.3"/>
  <node id="6" lat="0.3" lon="0.3"/>
  <way id="20">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/>
  </way>
  <way id="21">
    <nd ref="4"/><nd ref="5"/><nd ref="6"/><nd ref="4"/>
    <tag k="leisure" v="park"/>
    <tag k="name" v="Commons"/>
  </way>
  <relation id="200">
    <member type="way" ref="20" role="outer"/>
    <tag k="type" v="multipolygon"/>
    <tag k="water" v="lake"/>
    <tag k="name" v="Big Lake"/>
  </relation>
</osm>`

func writeInput(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "lake.osm")
	if err := os.WriteFile(path, []byte(lakeXML), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

// resetFlags puts every flag, and the variable bound to it, back to its
// default so commands run in one test do not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns what it printed
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCloseCommand(t *testing.T) {
	dir, path := writeInput(t)
	got, err := execute(t, "close", path, "--relation", "200", "-o", dir, "--direction", "cw")
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if !strings.Contains(got, "1 loops (0 bounded), 0 unresolved ways") {
		t.Errorf("unexpected output:\n%s", got)
	}
	if !strings.Contains(got, "bounded=false, ways [20]") {
		t.Errorf("loop line missing:\n%s", got)
	}
}

func TestFeaturesCommand(t *testing.T) {
	dir, path := writeInput(t)
	geo := filepath.Join(dir, "features.geojson")
	if _, err := execute(t, "features", path, "-o", dir, "--geojson", geo); err != nil {
		t.Fatalf("features failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "features.parquet")); err != nil {
		t.Errorf("features.parquet not written: %v", err)
	}
	data, err := os.ReadFile(geo)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"Big Lake"`, `"Commons"`, `"park"`, `"lake"`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("GeoJSON missing %s", want)
		}
	}
}

func TestCloseCommandSelectors(t *testing.T) {
	dir, path := writeInput(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"relation", []string{"--relation", "200"}, "1 loops (0 bounded), 0 unresolved ways"},
		{"tag", []string{"--tag", "leisure=park"}, "1 loops (1 bounded), 0 unresolved ways"},
		{"relation again", []string{"--relation", "200", "--loops", "bounded"}, "1 loops (0 bounded), 0 unresolved ways"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"close", path, "-o", dir}, tt.args...)
			got, err := execute(t, args...)
			if err != nil {
				t.Fatalf("close %v failed: %v", tt.args, err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, got)
			}
		})
	}
}

func TestResetFlags(t *testing.T) {
	_, path := writeInput(t)
	if _, err := execute(t, "close", path, "--tag", "leisure=park", "--role", "inner"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	resetFlags(rootCmd)

	if closeTag != "" || closeRelation != 0 || closeRole != "outer" {
		t.Errorf("flags not reset: tag=%q relation=%d role=%q", closeTag, closeRelation, closeRole)
	}
	if f := closeCmd.Flags().Lookup("tag"); f.Changed {
		t.Error("--tag still marked as changed")
	}
}

func TestParseBoundedness(t *testing.T) {
	for _, s := range []string{"all", "bounded", "Unbounded", ""} {
		if _, err := parseBoundedness(s); err != nil {
			t.Errorf("parseBoundedness(%q): %v", s, err)
		}
	}
	if _, err := parseBoundedness("some"); err == nil {
		t.Error("expected error")
	}
}
