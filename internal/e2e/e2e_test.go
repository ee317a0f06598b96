package e2e

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/autodocgen/autodocgen/internal/cli"
)

// A small annotated service tree exercising endpoints, a request body,
// models and package metadata.
var sampleTree = map[string]string{
	"doc.go": `package petstore

// @title Pet Store
// @version 1.2.0
// @description Manages pets.
`,
	"pets.go": `package petstore

// List Pets
// Returns every known pet.
// @Router /pets [get]
// @Tags Pets
// @Param limit query int false "Page size" default(20)
// @Success 200 {array} Pet
func ListPets(limit int) {}

// Create Pet
// @Router /pets [post]
// @Tags Pets
// @Success 201 {object} Pet
// @Failure 400 {object} ApiError "Invalid payload"
func CreatePet(req NewPet) {}

// Get Pet
// @Router /pets/{pet_id} [get]
// @Tags Pets
// @Success 200 {object} Pet
// @Failure 404 {object} ApiError
func GetPet(petID string) {}
`,
	"models.go": `package petstore

// Pet is a registered animal.
type Pet struct {
	ID       int     ` + "`json:\"id\"`" + `
	Name     string  ` + "`json:\"name\"`" + `
	Nickname *string ` + "`json:\"nickname,omitempty\"`" + `
}

// NewPet is the creation payload.
type NewPet struct {
	Name string ` + "`json:\"name\"`" + `
}

// ApiError is the error envelope.
type ApiError struct {
	Code    int    ` + "`json:\"code\"`" + `
	Message string ` + "`json:\"message\"`" + `
}
`,
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(dir, rel), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return dir
}

func runCLI(t *testing.T, args ...string) {
	t.Helper()
	root := cli.NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
}

func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	var list []string
	h := sha256.New()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		list = append(list, rel)
		// hash path + contents to be robust
		_, _ = h.Write([]byte(rel))
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		_, _ = h.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(list)
	return list, hex.EncodeToString(h.Sum(nil))
}

func TestE2E_Analyze_Deterministic(t *testing.T) {
	t.Parallel()
	tree := writeTree(t, sampleTree)
	out1 := filepath.Join(t.TempDir(), "api.json")
	out2 := filepath.Join(t.TempDir(), "api.json")

	runCLI(t, "analyze", "--root", tree, "--out", out1)
	runCLI(t, "analyze", "--root", tree, "--out", out2)

	b1, err := os.ReadFile(out1)
	if err != nil {
		t.Fatalf("read first document: %v", err)
	}
	b2, err := os.ReadFile(out2)
	if err != nil {
		t.Fatalf("read second document: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatal("repeated analyze runs produced different documents")
	}

	s := string(b1)
	for _, want := range []string{`"Pet Store"`, `"/pets"`, `"/pets/{pet_id}"`, `"NewPet"`, `"ApiError"`} {
		if !strings.Contains(s, want) {
			t.Errorf("document missing %s", want)
		}
	}
}

func TestE2E_Generate_AllLangs_Deterministic(t *testing.T) {
	t.Parallel()
	tree := writeTree(t, sampleTree)
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	runCLI(t, "generate", "--root", tree, "--lang", "go,python,ts", "--out", dir1, "--force")
	runCLI(t, "generate", "--root", tree, "--lang", "go,python,ts", "--out", dir2, "--force")

	files1, sum1 := digestDir(t, dir1)
	files2, sum2 := digestDir(t, dir2)
	if !slicesEqual(files1, files2) || sum1 != sum2 {
		t.Fatalf("generated outputs differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", files1, files2, sum1, sum2)
	}

	mustExist(t, filepath.Join(dir1, "go", "client.go"))
	mustExist(t, filepath.Join(dir1, "go", "types.go"))
	mustExist(t, filepath.Join(dir1, "python", "pet_store", "client.py"))
	mustExist(t, filepath.Join(dir1, "ts", "src", "client.ts"))
	mustExist(t, filepath.Join(dir1, "ts", "package.json"))
}

func TestE2E_Generate_FromDocument_MatchesTree(t *testing.T) {
	t.Parallel()
	tree := writeTree(t, sampleTree)
	doc := filepath.Join(t.TempDir(), "api.json")
	runCLI(t, "analyze", "--root", tree, "--out", doc)

	fromTree := t.TempDir()
	fromDoc := t.TempDir()
	runCLI(t, "generate", "--root", tree, "--lang", "go", "--out", fromTree, "--force")
	runCLI(t, "generate", "--from", doc, "--lang", "go", "--out", fromDoc, "--force")

	// Both paths must surface the same callables even if descriptions shift
	// through serialization.
	c1, err := os.ReadFile(filepath.Join(fromTree, "client.go"))
	if err != nil {
		t.Fatalf("read tree client: %v", err)
	}
	c2, err := os.ReadFile(filepath.Join(fromDoc, "client.go"))
	if err != nil {
		t.Fatalf("read document client: %v", err)
	}
	for _, method := range []string{"GetPets(", "PostPets(", "GetPetsPetId("} {
		if !strings.Contains(string(c1), method) {
			t.Errorf("tree client missing %s", method)
		}
		if !strings.Contains(string(c2), method) {
			t.Errorf("document client missing %s", method)
		}
	}
}

func TestE2E_Generate_Docs(t *testing.T) {
	t.Parallel()
	tree := writeTree(t, sampleTree)
	docsPath := filepath.Join(t.TempDir(), "API.md")

	runCLI(t, "generate", "--root", tree, "--lang", "go", "--out", t.TempDir(), "--force", "--docs", docsPath)

	data, err := os.ReadFile(docsPath)
	if err != nil {
		t.Fatalf("read docs: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "# Pet Store") {
		t.Errorf("docs missing title header:\n%s", s)
	}
	if !strings.Contains(s, "## Pets") || !strings.Contains(s, "### Pet") {
		t.Errorf("docs missing sections:\n%s", s)
	}
}

func TestE2E_DuplicateRoute_FailsRun(t *testing.T) {
	t.Parallel()
	tree := writeTree(t, map[string]string{
		"a.go": "package api\n\n// @Router /things [get]\nfunc A() {}\n",
		"b.go": "package api\n\n// @Router /things [get]\nfunc B() {}\n",
	})

	root := cli.NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"analyze", "--root", tree, "--out", filepath.Join(t.TempDir(), "api.json")})

	err := root.Execute()
	if !errors.Is(err, cli.ErrDiagnostics) {
		t.Fatalf("expected ErrDiagnostics, got %v", err)
	}
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %s: %v", path, err)
	}
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
