package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestStandardPaths(t *testing.T) {
	paths := StandardPaths()
	if len(paths) < 1 {
		t.Fatalf("expected at least 1 standard path, got %d", len(paths))
	}
	if paths[0] != "credentials.toml" {
		t.Errorf("first path should be credentials.toml, got %s", paths[0])
	}
}

func writeCreds(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.toml")
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCreds(t, `
[google]
api_keys = ["g-key-1", " g-key-2 ", ""]

[openai]
api_key = "sk-openai-test456"
`, 0400)

	creds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	google := creds.Keys("google")
	if len(google) != 2 || google[0] != "g-key-1" || google[1] != "g-key-2" {
		t.Errorf("expected [g-key-1 g-key-2], got %v", google)
	}
	if got := creds.Keys("openai"); len(got) != 1 || got[0] != "sk-openai-test456" {
		t.Errorf("expected [sk-openai-test456], got %v", got)
	}
}

func TestLoadFile_SingleAndListCombined(t *testing.T) {
	path := writeCreds(t, `
[google]
api_key = "a"
api_keys = ["b", "a"]
`, 0400)

	creds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := creds.Keys("google")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestLoadFile_ProviderOverridesLLM(t *testing.T) {
	path := writeCreds(t, `
[llm]
api_key = "generic-key"

[anthropic]
api_key = "anthropic-specific-key"
`, 0400)

	creds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := creds.Keys("anthropic"); len(got) != 1 || got[0] != "anthropic-specific-key" {
		t.Errorf("anthropic keys = %v, want [anthropic-specific-key]", got)
	}
	if got := creds.Keys("google"); len(got) != 1 || got[0] != "generic-key" {
		t.Errorf("google keys = %v, want [generic-key] (from [llm])", got)
	}
}

func TestLoadFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission check not applicable on Windows")
	}

	for _, mode := range []os.FileMode{0644, 0600} {
		path := writeCreds(t, "[llm]\napi_key = \"secret-key\"\n", mode)

		_, err := LoadFile(path)
		if err == nil {
			t.Fatalf("expected error for mode %04o", mode)
		}
		if !errors.Is(err, ErrInsecurePermissions) {
			t.Errorf("expected ErrInsecurePermissions, got %v", err)
		}
	}
}

func TestKeys_FallbackToEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", " k1, k2 ,,k3 ")

	creds := &Credentials{providers: make(map[string][]string)}

	got := creds.Keys("google")
	if len(got) != 3 || got[0] != "k1" || got[1] != "k2" || got[2] != "k3" {
		t.Errorf("expected [k1 k2 k3], got %v", got)
	}
}

func TestKeys_NilCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-openai")

	var creds *Credentials
	if got := creds.Keys("openai"); len(got) != 1 || got[0] != "env-openai" {
		t.Errorf("expected [env-openai], got %v", got)
	}
}

func TestKeys_CredentialsTakesPriority(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-value")

	creds := &Credentials{
		providers: map[string][]string{"anthropic": {"creds-value"}},
	}

	if got := creds.Keys("anthropic"); len(got) != 1 || got[0] != "creds-value" {
		t.Errorf("expected [creds-value], got %v", got)
	}
}

func TestParseKeyList(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"single", 1},
		{"a,b", 2},
		{" a , , b ,", 2},
		{"a,a,b", 2},
	}

	for _, tt := range tests {
		if got := ParseKeyList(tt.in); len(got) != tt.want {
			t.Errorf("ParseKeyList(%q): expected %d keys, got %v", tt.in, tt.want, got)
		}
	}
}

func TestEnvVarForProvider(t *testing.T) {
	if got := EnvVarForProvider("google"); got != "GOOGLE_API_KEY" {
		t.Errorf("expected GOOGLE_API_KEY, got %s", got)
	}
	if got := EnvVarForProvider("my-relay"); got != "MY_RELAY_API_KEY" {
		t.Errorf("expected MY_RELAY_API_KEY, got %s", got)
	}
}

func TestLoad_NoFile(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(origDir)

	t.Setenv("HOME", tmpDir)

	creds, path, err := Load()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if creds != nil {
		t.Error("expected nil credentials when no file exists")
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_FromCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(origDir)

	os.WriteFile("credentials.toml", []byte("[llm]\napi_key = \"from-current-dir\"\n"), 0400)

	creds, path, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds == nil {
		t.Fatal("expected credentials to be loaded")
	}
	if got := creds.Keys("any"); len(got) != 1 || got[0] != "from-current-dir" {
		t.Errorf("unexpected keys: %v", got)
	}
	if path != "credentials.toml" {
		t.Errorf("expected path 'credentials.toml', got %q", path)
	}
}
