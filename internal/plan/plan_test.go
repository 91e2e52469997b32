package plan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_NumberedSteps(t *testing.T) {
	text := "# Health Audit Plan\n\n## Execution Order\n\n" +
		"1. `00-stack-detector.md` — Stack Detection\n" +
		"2. `01-repository-inventory.md` — Repository Inventory\n" +
		"3. `02-config-analysis.md` — Configuration Analysis\n"

	steps, err := Parse(text, "/rules/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}

	want := Step{
		Index:    1,
		Filename: "01-repository-inventory.md",
		Filepath: filepath.Join("/rules/health", "01-repository-inventory.md"),
		Title:    "Repository Inventory",
	}
	if steps[1] != want {
		t.Errorf("expected %+v, got %+v", want, steps[1])
	}
	for i, s := range steps {
		if s.Index != i {
			t.Errorf("step %d has index %d", i, s.Index)
		}
	}
}

func TestParse_IndexFollowsMatchOrder(t *testing.T) {
	// Ordinals in the text are ignored; indices follow appearance.
	text := "5. `b.md` - B\n1. `a.md` - A\n"

	steps, err := Parse(text, ".")
	if err != nil {
		t.Fatal(err)
	}
	if steps[0].Filename != "b.md" || steps[0].Index != 0 {
		t.Errorf("expected b.md at index 0, got %+v", steps[0])
	}
	if steps[1].Filename != "a.md" || steps[1].Index != 1 {
		t.Errorf("expected a.md at index 1, got %+v", steps[1])
	}
}

func TestParse_DerivedTitle(t *testing.T) {
	steps, err := Parse("1. `00-stack-detector.md`\n", ".")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}
	if steps[0].Title != "stack detector" {
		t.Errorf("expected 'stack detector', got %q", steps[0].Title)
	}
}

func TestParse_NoSteps(t *testing.T) {
	_, err := Parse("# Empty Plan\n\nNo steps here.\n", ".")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrNoSteps) {
		t.Errorf("expected ErrNoSteps, got %v", err)
	}
	if !strings.Contains(err.Error(), "No steps found") {
		t.Errorf("expected 'No steps found' in message, got %q", err.Error())
	}
}

func TestParse_DashStyles(t *testing.T) {
	text := "1. `00-first.md` - First Step\n" +
		"2. `01-second.md` – Second Step\n" +
		"3. `02-third.md` — Third Step\n"

	steps, err := Parse(text, ".")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	for i, want := range []string{"First Step", "Second Step", "Third Step"} {
		if steps[i].Title != want {
			t.Errorf("step %d: expected %q, got %q", i, want, steps[i].Title)
		}
	}
}

func TestParse_CRLF(t *testing.T) {
	steps, err := Parse("1. `00-a-b.md`\r\n2. `01-c.md` — C\r\n", ".")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Title != "a b" || steps[1].Title != "C" {
		t.Errorf("unexpected titles %q, %q", steps[0].Title, steps[1].Title)
	}
}

func TestParse_IgnoresOtherExtensions(t *testing.T) {
	steps, err := Parse("1. `script.sh` — Nope\n2. `00-ok.md` — Yes\n", ".")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 1 || steps[0].Title != "Yes" {
		t.Errorf("expected only the .md step, got %+v", steps)
	}
}

func TestTitleFromFilename(t *testing.T) {
	cases := map[string]string{
		"00-stack-detector.md":    "stack detector",
		"readme.md":               "readme",
		"12-a-b-c.markdown":       "a b c",
		"notes.txt":               "notes",
		"7-not-stripped-twice.md": "not stripped twice",
	}
	for in, want := range cases {
		if got := TitleFromFilename(in); got != want {
			t.Errorf("TitleFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseString_Frontmatter(t *testing.T) {
	content := "---\nname: practices\nartifact_prefix: practices_step_\nreport: .md\n---\n" +
		"1. `00-naming.md` — Naming\n"

	p, err := ParseString(content, "/rules/practices", "ignored")
	if err != nil {
		t.Fatal(err)
	}
	if p.Meta.Name != "practices" {
		t.Errorf("expected name practices, got %q", p.Meta.Name)
	}
	if p.Meta.ArtifactPrefix != "practices_step_" {
		t.Errorf("expected prefix practices_step_, got %q", p.Meta.ArtifactPrefix)
	}
	if p.Meta.Report != "md" {
		t.Errorf("expected report ext md, got %q", p.Meta.Report)
	}
	if len(p.Steps) != 1 {
		t.Errorf("expected 1 step, got %d", len(p.Steps))
	}
}

func TestParseString_Defaults(t *testing.T) {
	p, err := ParseString("1. `00-a.md`\n", ".", "health")
	if err != nil {
		t.Fatal(err)
	}
	if p.Meta.Name != "health" {
		t.Errorf("expected name from caller, got %q", p.Meta.Name)
	}
	if p.Meta.ArtifactPrefix != DefaultArtifactPrefix {
		t.Errorf("expected default prefix, got %q", p.Meta.ArtifactPrefix)
	}
	if p.Meta.Report != DefaultReportExt {
		t.Errorf("expected default report ext, got %q", p.Meta.Report)
	}
}

func TestParseString_UnclosedFrontmatter(t *testing.T) {
	if _, err := ParseString("---\nname: x\n1. `00-a.md`\n", ".", "x"); err == nil {
		t.Error("expected error for unclosed frontmatter")
	}
}

func TestLoadFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "health")
	os.MkdirAll(dir, 0755)
	planPath := filepath.Join(dir, PlanFile)
	os.WriteFile(planPath, []byte("1. `00-a.md` — A\n"), 0644)

	p, err := LoadFile(planPath)
	if err != nil {
		t.Fatal(err)
	}
	if p.Meta.Name != "health" {
		t.Errorf("expected name from directory, got %q", p.Meta.Name)
	}
	if p.Steps[0].Filepath != filepath.Join(dir, "00-a.md") {
		t.Errorf("unexpected filepath %q", p.Steps[0].Filepath)
	}
	if p.Path != planPath {
		t.Errorf("expected Path %q, got %q", planPath, p.Path)
	}
}

func TestListAudits(t *testing.T) {
	rules := t.TempDir()
	for name, content := range map[string]string{
		"practices": "1. `00-a.md` — A\n2. `01-b.md` — B\n",
		"health":    "1. `00-x.md`\n",
		"broken":    "nothing here\n",
	} {
		os.MkdirAll(filepath.Join(rules, name), 0755)
		os.WriteFile(filepath.Join(rules, name, PlanFile), []byte(content), 0644)
	}
	os.MkdirAll(filepath.Join(rules, "noplan"), 0755)
	os.WriteFile(filepath.Join(rules, "stray.md"), []byte("x"), 0644)

	audits, err := ListAudits(rules)
	if err != nil {
		t.Fatal(err)
	}
	if len(audits) != 3 {
		t.Fatalf("expected 3 audits, got %d", len(audits))
	}
	if audits[0].Name != "broken" || audits[0].Err == nil {
		t.Errorf("expected broken audit with error, got %+v", audits[0])
	}
	if audits[2].Name != "practices" || len(audits[2].Plan.Steps) != 2 {
		t.Errorf("unexpected practices audit %+v", audits[2])
	}
}

func TestFindRulesDir(t *testing.T) {
	dir := t.TempDir()
	got, err := FindRulesDir("", filepath.Join(dir, "missing"), dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("expected %q, got %q", dir, got)
	}

	if _, err := FindRulesDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error when no candidate exists")
	}
}
