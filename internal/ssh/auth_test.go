package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/spf13/afero"
	gossh "golang.org/x/crypto/ssh"
)

// generateEd25519Key generates an unencrypted Ed25519 private key in PEM format.
func generateEd25519Key(t *testing.T) []byte {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	keyBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal ed25519 key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})
}

func generateEncryptedEd25519Key(t *testing.T, passphrase string) []byte {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	block, err := gossh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	if err != nil {
		t.Fatalf("marshal encrypted key: %v", err)
	}
	return pem.EncodeToMemory(block)
}

func writeFile(t *testing.T, fsys afero.Fs, path string, data []byte) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestBuildAuthMethods_PasswordOnly(t *testing.T) {
	methods, err := BuildAuthMethods(AuthConfig{Password: "pw", Fs: afero.NewMemMapFs(), Home: "/home/u"})
	if err != nil {
		t.Fatalf("BuildAuthMethods() error = %v", err)
	}
	// password plus keyboard-interactive
	if len(methods) != 2 {
		t.Errorf("methods: got %d, want 2", len(methods))
	}
}

func TestBuildAuthMethods_NothingAvailable(t *testing.T) {
	_, err := BuildAuthMethods(AuthConfig{Fs: afero.NewMemMapFs(), Home: "/home/u"})
	if err == nil {
		t.Error("expected error when no method is available")
	}
}

func TestBuildAuthMethods_ExplicitKey(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/home/u/keys/deploy", generateEd25519Key(t))

	methods, err := BuildAuthMethods(AuthConfig{KeyPath: "~/keys/deploy", Fs: fsys, Home: "/home/u"})
	if err != nil {
		t.Fatalf("BuildAuthMethods() error = %v", err)
	}
	if len(methods) != 1 {
		t.Errorf("methods: got %d, want 1", len(methods))
	}
}

func TestBuildAuthMethods_MissingExplicitKey(t *testing.T) {
	_, err := BuildAuthMethods(AuthConfig{KeyPath: "/nope", Password: "pw", Fs: afero.NewMemMapFs()})
	if err == nil {
		t.Error("expected error for a missing explicit key")
	}
}

func TestBuildAuthMethods_EncryptedKey(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/k", generateEncryptedEd25519Key(t, "open sesame"))

	if _, err := BuildAuthMethods(AuthConfig{KeyPath: "/k", KeyPassphrase: "open sesame", Fs: fsys}); err != nil {
		t.Errorf("with passphrase: %v", err)
	}
	if _, err := BuildAuthMethods(AuthConfig{KeyPath: "/k", KeyPassphrase: "wrong", Fs: fsys}); err == nil {
		t.Error("expected error with the wrong passphrase")
	}
}

func TestBuildAuthMethods_DefaultKey(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/home/u/.ssh/id_rsa", generateEd25519Key(t))

	methods, err := BuildAuthMethods(AuthConfig{Fs: fsys, Home: "/home/u"})
	if err != nil {
		t.Fatalf("BuildAuthMethods() error = %v", err)
	}
	if len(methods) != 1 {
		t.Errorf("methods: got %d, want 1", len(methods))
	}
}

func TestIdentityFileFor(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/home/u/.ssh/config", []byte(`
# transfer hosts
Host *.example.com !bastion.example.com
    IdentityFile ~/.ssh/transfer_key

Host bastion.example.com
    IdentityFile ~/.ssh/bastion_key
`))

	tests := []struct {
		host string
		want string
	}{
		{"sftp.example.com", "/home/u/.ssh/transfer_key"},
		{"SFTP.EXAMPLE.COM", "/home/u/.ssh/transfer_key"},
		{"bastion.example.com", "/home/u/.ssh/bastion_key"},
		{"other.org", ""},
	}
	for _, tt := range tests {
		if got := identityFileFor(fsys, "/home/u", tt.host); got != tt.want {
			t.Errorf("identityFileFor(%q): got %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestMatchHostPatterns(t *testing.T) {
	tests := []struct {
		host     string
		patterns []string
		want     bool
	}{
		{"files.corp", []string{"files.corp"}, true},
		{"files.corp", []string{"*.corp"}, true},
		{"files.corp", []string{"file?.corp"}, true},
		{"files.corp", []string{"*.org"}, false},
		{"files.corp", []string{"*", "!files.corp"}, false},
		{"files.corp", []string{"!other.corp"}, false},
	}
	for _, tt := range tests {
		if got := matchHostPatterns(tt.host, tt.patterns); got != tt.want {
			t.Errorf("matchHostPatterns(%q, %v): got %v, want %v", tt.host, tt.patterns, got, tt.want)
		}
	}
}

func TestExpandPath(t *testing.T) {
	if got := expandPath("~/.ssh/id_rsa", "/home/u"); got != "/home/u/.ssh/id_rsa" {
		t.Errorf("tilde: got %q", got)
	}
	if got := expandPath("/etc/key", "/home/u"); got != "/etc/key" {
		t.Errorf("absolute: got %q", got)
	}
	if got := expandPath("~/.ssh/id_rsa", ""); got != "~/.ssh/id_rsa" {
		t.Errorf("no home: got %q", got)
	}
}

func TestBuildHostKeyCallback_MissingKnownHosts(t *testing.T) {
	cb, err := BuildHostKeyCallback(HostKeyConfig{Fs: afero.NewMemMapFs(), Home: "/home/u"})
	if err != nil {
		t.Fatalf("BuildHostKeyCallback() error = %v", err)
	}
	if err := cb("h:22", nil, nil); err != nil {
		t.Errorf("callback without known_hosts should accept: %v", err)
	}
}

func TestKeyboardInteractiveAuth_AnswersEveryQuestion(t *testing.T) {
	if KeyboardInteractiveAuth("pw") == nil {
		t.Error("expected an auth method")
	}
}
