package tsemitter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autodocgen/autodocgen/internal/api"
	"github.com/autodocgen/autodocgen/internal/diag"
)

func sampleDescription() *api.Description {
	return &api.Description{
		Title:   "Pet API",
		Version: "1.0.0",
		Endpoints: []api.Endpoint{
			{
				Method:  api.GET,
				Path:    "/pets/{pet_id}",
				Handler: "GetPet",
				Summary: "Get Pet",
				Parameters: []api.Parameter{
					{Name: "pet_id", In: "path", Type: api.Prim(api.String), Required: true},
					{Name: "limit", In: "query", Type: api.Prim(api.Integer), Default: "10"},
				},
				Responses: []api.Response{{Status: "200", Type: api.RefTo("Pet"), Description: "A pet"}},
			},
			{
				Method:      api.POST,
				Path:        "/pets",
				Handler:     "CreatePet",
				RequestBody: "NewPet",
				Responses:   []api.Response{{Status: "201", Type: api.RefTo("Pet")}},
			},
		},
		Schemas: []api.Model{
			{Name: "Pet", Fields: []api.Field{
				{Name: "id", Type: api.Prim(api.Integer), Required: true},
				{Name: "name", Type: api.Prim(api.String), Required: true},
				{Name: "nickname", Type: api.Prim(api.String)},
			}},
			{Name: "NewPet", Fields: []api.Field{
				{Name: "name", Type: api.Prim(api.String), Required: true},
			}},
		},
	}
}

func TestEmitWritesPackage(t *testing.T) {
	tmp := t.TempDir()
	res, err := Emit(context.Background(), sampleDescription(), Options{OutDir: tmp})
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if res.PackageName != "pet-api" {
		t.Errorf("package = %q, want pet-api", res.PackageName)
	}
	for _, rel := range []string{"package.json", "tsconfig.json", "src/index.ts", "src/types.ts", "src/client.ts"} {
		if _, err := os.Stat(filepath.Join(tmp, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}

	pkg, err := os.ReadFile(filepath.Join(tmp, "package.json"))
	if err != nil {
		t.Fatalf("read package.json: %v", err)
	}
	if !strings.Contains(string(pkg), `"name": "pet-api"`) || !strings.Contains(string(pkg), `"version": "1.0.0"`) {
		t.Errorf("package.json metadata wrong:\n%s", pkg)
	}

	types, err := os.ReadFile(filepath.Join(tmp, "src", "types.ts"))
	if err != nil {
		t.Fatalf("read types.ts: %v", err)
	}
	ts := string(types)
	if !strings.Contains(ts, "export interface Pet {") {
		t.Errorf("types.ts missing Pet interface:\n%s", ts)
	}
	if !strings.Contains(ts, "  id: number;") || !strings.Contains(ts, "  name: string;") {
		t.Error("required fields must not be optional")
	}
	if !strings.Contains(ts, "  nickname?: string;") {
		t.Errorf("optional field must use ?::\n%s", ts)
	}

	client, err := os.ReadFile(filepath.Join(tmp, "src", "client.ts"))
	if err != nil {
		t.Fatalf("read client.ts: %v", err)
	}
	cs := string(client)
	if !strings.Contains(cs, `import type { Pet, NewPet } from "./types";`) {
		t.Errorf("client.ts must import referenced models:\n%s", cs)
	}
	if !strings.Contains(cs, "async getPetsPetId(pet_id: string, limit?: number): Promise<Pet> {") {
		t.Errorf("client.ts method signature wrong:\n%s", cs)
	}
	if !strings.Contains(cs, "const path = `/pets/${pet_id}`;") {
		t.Error("path parameters must interpolate via template literal")
	}
	if !strings.Contains(cs, `if (limit !== undefined) query["limit"] = String(limit);`) {
		t.Error("query parameters must be stringified when set")
	}
	if !strings.Contains(cs, `return (await this.transport.request("GET", path, { query })) as Pet;`) {
		t.Errorf("typed responses must cast the transport result:\n%s", cs)
	}
	if !strings.Contains(cs, "async postPets(body: NewPet): Promise<Pet> {") {
		t.Errorf("client.ts missing POST method:\n%s", cs)
	}
}

func TestEmitDegradesUnknownTypes(t *testing.T) {
	d := sampleDescription()
	d.Endpoints[0].Responses[0].Type = api.RefTo("Missing")
	d.Schemas[0].Fields = append(d.Schemas[0].Fields, api.Field{Name: "extra", Type: api.Unknown()})

	tmp := t.TempDir()
	res, err := Emit(context.Background(), d, Options{OutDir: tmp})
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	client, _ := os.ReadFile(filepath.Join(tmp, "src", "client.ts"))
	if !strings.Contains(string(client), "return this.transport.request(") {
		t.Errorf("unresolved response must skip the cast:\n%s", client)
	}
	types, _ := os.ReadFile(filepath.Join(tmp, "src", "types.ts"))
	if !strings.Contains(string(types), "extra?: unknown;") {
		t.Errorf("unknown field must render as unknown:\n%s", types)
	}
	if res.Diagnostics.Count(diag.UnsupportedType) == 0 {
		t.Error("degradations must report diagnostics")
	}
}

func TestEmitDryRun(t *testing.T) {
	tmp := t.TempDir()
	res, err := Emit(context.Background(), sampleDescription(), Options{OutDir: tmp, DryRun: true})
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if len(res.Planned) != 5 {
		t.Errorf("planned = %d, want 5", len(res.Planned))
	}
	for i := 1; i < len(res.Planned); i++ {
		if res.Planned[i-1].RelPath >= res.Planned[i].RelPath {
			t.Errorf("plan not sorted: %q before %q", res.Planned[i-1].RelPath, res.Planned[i].RelPath)
		}
	}
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("dry run must write nothing, found %d entries", len(entries))
	}
}

func TestEmitRefusesNonEmptyDir(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Emit(context.Background(), sampleDescription(), Options{OutDir: tmp}); err == nil {
		t.Error("non-empty output dir must be refused without Force")
	}
	if _, err := Emit(context.Background(), sampleDescription(), Options{OutDir: tmp, Force: true}); err != nil {
		t.Errorf("Force must override: %v", err)
	}
}

func TestEmitValidation(t *testing.T) {
	if _, err := Emit(context.Background(), nil, Options{OutDir: "/tmp/x"}); err == nil {
		t.Error("nil description must error")
	}
	if _, err := Emit(context.Background(), sampleDescription(), Options{}); err == nil {
		t.Error("empty OutDir must error")
	}
}

func TestTSType(t *testing.T) {
	tests := []struct {
		in   api.TypeDescriptor
		want string
	}{
		{api.Prim(api.String), "string"},
		{api.Prim(api.Integer), "number"},
		{api.Prim(api.Number), "number"},
		{api.Prim(api.Boolean), "boolean"},
		{api.Prim(api.Object), "Record<string, unknown>"},
		{api.ArrayOf(api.RefTo("Pet")), "Pet[]"},
		{api.OptionalOf(api.Prim(api.String)), "string"},
		{api.Unknown(), "unknown"},
	}
	for _, tt := range tests {
		if got := tsType(tt.in); got != tt.want {
			t.Errorf("tsType(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}

	enum := api.TypeDescriptor{Kind: api.KindEnum, EnumBase: api.String, Values: []string{"available", "sold"}}
	if got := tsType(enum); got != `"available" | "sold"` {
		t.Errorf("enum union = %q", got)
	}
	intEnum := api.TypeDescriptor{Kind: api.KindEnum, EnumBase: api.Integer, Values: []string{"1", "2"}}
	if got := tsType(intEnum); got != "1 | 2" {
		t.Errorf("integer enum union = %q", got)
	}
	if got := tsType(api.ArrayOf(enum)); got != `Array<"available" | "sold">` {
		t.Errorf("array of union = %q", got)
	}
}

func TestCallableName(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{"GET", "/users", "getUsers"},
		{"GET", "/users/{user_id}", "getUsersUserId"},
		{"POST", "/users/{user_id}/orders", "postUsersUserIdOrders"},
		{"DELETE", "/a-b/c.d", "deleteABCD"},
	}
	for _, tt := range tests {
		if got := callableName(tt.method, tt.path); got != tt.want {
			t.Errorf("callableName(%q, %q) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestTSPropName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"user_id", "user_id"},
		{"$ref", "$ref"},
		{"X-Request-Id", `"X-Request-Id"`},
		{"1st", `"1st"`},
	}
	for _, tt := range tests {
		if got := tsPropName(tt.in); got != tt.want {
			t.Errorf("tsPropName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizePackageName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Pet API", "pet-api"},
		{"my/client", "my-client"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizePackageName(tt.in); got != tt.want {
			t.Errorf("sanitizePackageName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
