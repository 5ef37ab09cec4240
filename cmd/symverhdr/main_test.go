package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"symverhdr/internal/classify"
	"symverhdr/internal/config"
	"symverhdr/internal/pipeline"
	"symverhdr/internal/provision"
	"symverhdr/internal/reconcile"
	"symverhdr/internal/release"
	"symverhdr/internal/symtab"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		_ = rootCmd.PersistentFlags().Set("config", "")
		genOpts.versions = nil
		current.cleanup()
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCatalogJSON(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cfgPath := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("[paths]\nwork_dir = \"work\"\n"), 0o600))

	out, err := execute(t, "--config", cfgPath, "catalog", "--format", "json")
	require.NoError(t, err)

	var entries []catalogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, len(release.Catalog()))
	assert.Equal(t, "2.5", entries[0].Release)
	assert.Equal(t, "glibc-2.27", entries[len(entries)-1].Tag)
	assert.False(t, entries[0].Built)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var payload versionPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "symverhdr", payload.Tool)
	assert.Equal(t, "2.5..2.27", payload.Catalog)
}

func TestGenerateRejectsUnknownRelease(t *testing.T) {
	_, err := execute(t, "generate", "-v", "2.99", "--ui", "off")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2.99")
}

func TestProgressUI(t *testing.T) {
	var buf bytes.Buffer
	for value, want := range map[string]bool{"on": true, " ON ": true, "off": false, "auto": false, "": false} {
		got, err := progressUI(value, false, &buf)
		require.NoError(t, err, value)
		assert.Equal(t, want, got, value)
	}
	on, err := progressUI("on", true, &buf)
	require.NoError(t, err)
	assert.True(t, on, "an explicit on wins over quiet")

	_, err = progressUI("sometimes", false, &buf)
	assert.ErrorContains(t, err, "auto|on|off")
}

func TestInstallRootParsing(t *testing.T) {
	cfg := &config.Config{}
	_, err := newProvisioner(cfg, []string{"2.17"}, nil)
	assert.ErrorContains(t, err, "RELEASE=DIR")
	_, err = newProvisioner(cfg, []string{"two=/tmp"}, nil)
	assert.Error(t, err)
}

func TestInspectReport(t *testing.T) {
	tbl := symtab.Table{
		"memcpy":       "GLIBC_2.14",
		"pthread_once": "GLIBC_2.2.5",
	}
	report := buildInspectReport(release.MustNew(2, 17), provision.ArchX64, "/r", tbl, classify.Default())
	require.Len(t, report.Symbols, 2)
	assert.Equal(t, "memcpy", report.Symbols[0].Name)
	assert.Empty(t, report.Symbols[0].Guards)
	assert.Equal(t, []string{"_REENTRANT", "!IN_LIBGCC2", "!_GLIBCXX_SHARED"}, report.Symbols[1].Guards)

	classes := classify.Default()
	require.Len(t, report.Classes, 3)
	assert.Equal(t, inspectClass{Name: classes.LibcPthread.Name, Present: 1, Known: classes.LibcPthread.Len()}, report.Classes[0])
	for _, c := range report.Classes {
		assert.Equal(t, 1, c.Present, c.Name)
		assert.Positive(t, c.Known, c.Name)
	}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "yaml", report))
	var decoded inspectReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report, decoded)

	buf.Reset()
	require.NoError(t, writeReport(&buf, "json", report))
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"release\": \"2.17\""))
}

func TestPrintMissingListsReleasesInOrder(t *testing.T) {
	rec := reconcile.Result{
		Universe: []string{"memcpy", "secure_getenv"},
		Missing: map[release.Release][]string{
			release.MustNew(2, 17):    nil,
			release.MustNew(2, 10, 2): {"secure_getenv"},
		},
	}
	var buf bytes.Buffer
	printMissing(&buf, message.NewPrinter(language.English), rec)
	assert.Equal(t, "  glibc 2.10.2   1 missing\n  glibc 2.17     0 missing\n", buf.String())
}

func TestTextSink(t *testing.T) {
	var buf bytes.Buffer
	s := &textSink{out: &buf}
	s.OnEvent(pipeline.Event{Release: "2.17", Stage: pipeline.StageProvision, Status: pipeline.StatusQueued})
	s.OnEvent(pipeline.Event{Release: "2.17", Stage: pipeline.StageProvision, Status: pipeline.StatusWorking})
	s.OnEvent(pipeline.Event{Release: "2.17", Stage: pipeline.StageWrite, Status: pipeline.StatusDone})
	s.OnEvent(pipeline.Event{Stage: pipeline.StageWrite, Status: pipeline.StatusDone})
	assert.Equal(t, "generating data for version: 2.17\nwriting header for version: 2.17\n", buf.String())
}

func TestPrintStageTimings(t *testing.T) {
	var timings pipeline.Timings
	timings.Set(pipeline.StageReconcile, 1500000)
	var buf bytes.Buffer
	printStageTimings(&buf, timings)
	assert.Equal(t, "reconciled 1.5 ms\n", buf.String())
}
