package ssh

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wanjune/yuu-transfer/internal/testing/fakes/fakesshdialer"
	gossh "golang.org/x/crypto/ssh"
)

func TestNewClient_Validation(t *testing.T) {
	auth := []gossh.AuthMethod{PasswordAuth("pw")}
	tests := []struct {
		name string
		opts Options
	}{
		{"missing host", Options{User: "u", AuthMethods: auth}},
		{"missing user", Options{Host: "h", AuthMethods: auth}},
		{"missing auth", Options{Host: "h", User: "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.opts); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Options{Host: "files.example.com", User: "deploy", AuthMethods: []gossh.AuthMethod{PasswordAuth("pw")}})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.Port() != DefaultPort {
		t.Errorf("Port: got %d, want %d", c.Port(), DefaultPort)
	}
	if c.config.Timeout != DefaultTimeout {
		t.Errorf("Timeout: got %v, want %v", c.config.Timeout, DefaultTimeout)
	}
	if c.Target() != "deploy@files.example.com:22" {
		t.Errorf("Target: got %q", c.Target())
	}
	if c.Conn() != nil {
		t.Error("Conn should be nil before Connect")
	}
}

func TestConnect_ErrorNamesTarget(t *testing.T) {
	dialer := fakesshdialer.New()
	dialer.SetError(errors.New("no route to host"))
	c, err := NewClient(Options{
		Host:        "10.0.0.5",
		Port:        2022,
		User:        "deploy",
		AuthMethods: []gossh.AuthMethod{PasswordAuth("topsecret")},
		Dialer:      dialer,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	err = c.Connect(context.Background())
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !strings.Contains(err.Error(), "deploy@10.0.0.5:2022") {
		t.Errorf("error %q should name the target", err)
	}
	if strings.Contains(err.Error(), "topsecret") {
		t.Errorf("error leaks the password: %v", err)
	}
	if calls := dialer.Calls(); len(calls) != 1 || calls[0].User != "deploy" {
		t.Errorf("dial calls: got %+v", calls)
	}
}

func TestClose_BeforeConnect(t *testing.T) {
	c, err := NewClient(Options{Host: "h", User: "u", AuthMethods: []gossh.AuthMethod{PasswordAuth("pw")}})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
