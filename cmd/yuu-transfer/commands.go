package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/wanjune/yuu-transfer/internal/config"
	"github.com/wanjune/yuu-transfer/internal/ports"
	"github.com/wanjune/yuu-transfer/internal/profiles"
	"github.com/wanjune/yuu-transfer/internal/security"
)

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (a *app) profileCommand(args []string) error {
	if len(args) == 0 {
		return usageError("profile needs a subcommand: list or add")
	}
	switch args[0] {
	case "list":
		return a.listProfiles()
	case "add":
		if len(args) != 2 {
			return usageError("profile add takes sftp or oss")
		}
		return a.addProfile(args[1])
	default:
		return usageError("unknown profile subcommand %q", args[0])
	}
}

func (a *app) listProfiles() error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tTARGET")
	for i := range a.cfg.SFTP {
		p := &a.cfg.SFTP[i]
		fmt.Fprintf(w, "sftp\t%s\t%s\n", p.Name, profiles.Target(p))
	}
	for _, p := range a.cfg.ObjectStores {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Provider, p.Name, p.Bucket)
	}
	return w.Flush()
}

func (a *app) addProfile(kind string) error {
	switch kind {
	case "sftp":
		form, err := a.dialog.SFTPProfileForm(ports.SFTPProfileForm{Port: 22})
		if err != nil {
			return err
		}
		if !form.Confirmed {
			fmt.Fprintln(a.out, "cancelled")
			return nil
		}
		err = a.cfg.AddSFTP(config.SFTPProfile{
			Name:        form.Name,
			Host:        form.Host,
			Port:        form.Port,
			User:        form.User,
			KeyPath:     form.KeyPath,
			PasswordEnv: form.PasswordEnv,
		})
		if err != nil {
			return err
		}
	case "oss":
		form, err := a.dialog.ObjectStoreProfileForm(ports.ObjectStoreProfileForm{})
		if err != nil {
			return err
		}
		if !form.Confirmed {
			fmt.Fprintln(a.out, "cancelled")
			return nil
		}
		err = a.cfg.AddObjectStore(config.ObjectStoreProfile{
			Name:               form.Name,
			Provider:           form.Provider,
			Endpoint:           form.Endpoint,
			Region:             form.Region,
			Bucket:             form.Bucket,
			AccessKeyID:        form.AccessKeyID,
			AccessKeySecretEnv: form.AccessKeySecretEnv,
		})
		if err != nil {
			return err
		}
	default:
		return usageError("profile add takes sftp or oss, not %q", kind)
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(a.cfg, a.configPath, a.localFs); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "saved %s\n", a.configPath)
	return nil
}

// secretCommand stores or deletes the keyring entry a profile reads its
// password, passphrase or access key secret from.
func (a *app) secretCommand(args []string) error {
	if len(args) == 0 {
		return usageError("secret needs a subcommand: set or delete")
	}
	action := args[0]
	if action != "set" && action != "delete" {
		return usageError("unknown secret subcommand %q", action)
	}

	fs := flag.NewFlagSet("secret "+action, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	passphrase := fs.Bool("passphrase", false, "use the private key passphrase entry")
	if err := fs.Parse(args[1:]); err != nil {
		return usageError("secret %s: %v", action, err)
	}
	if fs.NArg() != 1 {
		return usageError("secret %s takes a profile name", action)
	}

	key, title, err := a.secretKey(fs.Arg(0), *passphrase)
	if err != nil {
		return err
	}

	if action == "delete" {
		if err := a.keyring.Delete(key); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted %s\n", key)
		return nil
	}

	value, err := a.dialog.Secret(title, "Stored in the OS keyring under "+security.KeyringService)
	if err != nil {
		return err
	}
	secret := []byte(value)
	defer security.WipeBytes(secret)
	if err := a.keyring.Store(key, secret); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "stored %s\n", key)
	return nil
}

func (a *app) secretKey(name string, passphrase bool) (key, title string, err error) {
	if p, err := a.cfg.SFTPProfile(name); err == nil {
		if passphrase {
			if p.KeyPath == "" {
				return "", "", fmt.Errorf("sftp profile %q has no key_path", name)
			}
			return security.SFTPPassphraseKey(p.KeyPath), "Passphrase for " + p.KeyPath, nil
		}
		return security.SFTPPasswordKey(p.User, p.Host, p.Port), "Password for " + profiles.Target(p), nil
	}
	if p, err := a.cfg.ObjectStoreProfile(name); err == nil {
		if p.AccessKeyID == "" {
			return "", "", fmt.Errorf("object store profile %q has no access_key_id", name)
		}
		return security.ObjectStoreSecretKey(p.AccessKeyID), "Access key secret for " + p.AccessKeyID, nil
	}
	return "", "", fmt.Errorf("profile %q not found", name)
}
